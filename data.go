package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"estat_reader/estat"
	"estat_reader/utils"
)

type DataConfig struct {
	CommonConfig
	ID        string   `long:"id" required:"true" description:"Statistics table id (statsDataId)"`
	Limit     int      `long:"limit" default:"0" description:"Maximum number of records. By default the whole table is read, paging if needed"`
	Start     int      `long:"start" default:"0" description:"Position of the first record"`
	SplitUnit bool     `long:"split-unit" description:"Write one table per unit"`
	Wide      bool     `long:"wide" description:"Drop codes and levels and write one value column per tabulation item"`
	Raw       bool     `long:"raw" description:"Write the untouched JSON response to <dir>/<name>.json instead of tables"`
	Partition bool     `long:"partition" description:"Split large tables into one request per classification code instead of following NEXT_KEY"`
	Filters   []string `long:"filter" description:"Restrict a dimension to a comma separated list of codes, e.g. 'area=13000,14000'. Can be repeated"`
	Levels    []string `long:"level" description:"Restrict a dimension to a hierarchy level, e.g. 'area=2'. Can be repeated"`
	NAValue   *float64 `long:"na-value" description:"Value stored for missing observations. By default they are left empty"`
	Name      string   `long:"name" description:"Name of the output table, defaults to the table id"`
}

// Parses "dim=value" pairs. Unknown dimensions are skipped with a warning.
func parseDimensionValues(pairs []string, flag string) (map[estat.Dimension]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := make(map[estat.Dimension]string, len(pairs))
	var dims []estat.Dimension
	for _, p := range pairs {
		dim, value, ok := strings.Cut(p, "=")
		if !ok || value == "" {
			return nil, fmt.Errorf("'--%s' expects 'dimension=value', got '%s'", flag, p)
		}
		d := estat.Dimension(strings.ToLower(strings.TrimSpace(dim)))
		values[d] = strings.Join(utils.SplitList(value), ",")
		dims = append(dims, d)
	}

	known := utils.FilterSlice(dims, estat.Dimensions(), "Unknown dimension '%s' in --"+flag+", skipping")
	out := make(map[estat.Dimension]string, len(known))
	for _, d := range known {
		out[d] = values[d]
	}
	return out, nil
}

func (config *DataConfig) filters() (map[estat.Dimension]estat.Filter, error) {
	codes, err := parseDimensionValues(config.Filters, "filter")
	if err != nil {
		return nil, err
	}
	levels, err := parseDimensionValues(config.Levels, "level")
	if err != nil {
		return nil, err
	}

	filters := make(map[estat.Dimension]estat.Filter)
	for d, c := range codes {
		f := filters[d]
		f.Code = c
		filters[d] = f
	}
	for d, lv := range levels {
		f := filters[d]
		f.Level = lv
		filters[d] = f
	}
	return filters, nil
}

func (config *DataConfig) options(common estat.ReaderOptions) (estat.StatsDataOptions, error) {
	filters, err := config.filters()
	if err != nil {
		return estat.StatsDataOptions{}, err
	}

	opts := estat.StatsDataOptions{
		ReaderOptions: common,
		StatsDataID:   config.ID,
		Filters:       filters,
		StartPosition: config.Start,
		NAValue:       config.NAValue,
	}
	if config.Limit > 0 {
		opts.Limit = estat.Int(config.Limit)
	}
	if config.Partition {
		opts.Strategy = estat.PartitionStrategy
	}
	return opts, nil
}

func (config *DataConfig) Execute(_ []string) error {
	defer utils.SendEmailOnPanic("data", config.Email)

	if config.Name == "" {
		config.Name = config.ID
	}
	if err := config.setup(config.Name, "data"); err != nil {
		return err
	}

	opts, err := config.options(config.readerOptions(config.limiter()))
	if err != nil {
		return err
	}
	reader, err := estat.NewStatsDataReader(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Raw {
		return config.writeRaw(ctx, config.Name, reader)
	}

	tables, err := config.read(ctx, reader)
	if err != nil {
		utils.SendEmailOnError("data", err, config.Email)
		return err
	}
	return config.write(ctx, tables)
}

// Reads the table in the layout asked for by --split-unit and --wide
func (config *DataConfig) read(ctx context.Context, reader *estat.StatsDataReader) (map[string]estat.Result, error) {
	tables := map[string]estat.Result{}
	if config.SplitUnit {
		read := reader.ReadByUnit
		if config.Wide {
			read = reader.ReadWideByUnit
		}
		units, meta, err := read(ctx)
		if err != nil {
			return nil, err
		}
		logStatus(meta)
		for unit, df := range units {
			tables[config.Name+"_"+unit] = estat.Result{Frame: df, Meta: meta}
		}
		return tables, nil
	}

	read := reader.Read
	if config.Wide {
		read = reader.ReadWide
	}
	res, err := read(ctx)
	if err != nil {
		return nil, err
	}
	logStatus(res.Meta)
	slog.Info(fmt.Sprintf("Read %s (%s)", res.Meta.DataName(), res.Meta.StatsDataID))
	tables[config.Name] = res
	return tables, nil
}
