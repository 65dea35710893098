package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickb777/period"

	"estat_reader/estat"
	"estat_reader/utils"
)

type ListConfig struct {
	CommonConfig
	SearchWord    string `long:"search" description:"Keywords, combined with AND, OR or NOT"`
	SurveyYears   string `long:"survey-years" description:"Survey date, as yyyy, yyyymm or yyyymm-yyyymm"`
	OpenYears     string `long:"open-years" description:"Publication date, as yyyy, yyyymm or yyyymm-yyyymm"`
	StatsField    string `long:"field" description:"Two digit field code, or four digits for a subfield"`
	StatsCode     string `long:"code" description:"Five digit organization code, or eight digits for a government statistic"`
	CollectArea   int    `long:"collect-area" default:"0" choice:"0" choice:"1" choice:"2" choice:"3" description:"1 national, 2 prefectures, 3 municipalities"`
	Start         int    `long:"start" default:"0" description:"Position of the first record"`
	Limit         int    `long:"limit" default:"0" description:"Maximum number of records"`
	NamesOnly     bool   `long:"names-only" description:"List the statistics names instead of the tables"`
	UpdatedWithin string `long:"updated-within" description:"Only tables updated within this ISO-8601 period, e.g. P1M"`
	Name          string `long:"name" default:"stats_list" description:"Name of the output table"`
	Raw           bool   `long:"raw" description:"Write the untouched JSON response to <dir>/<name>.json instead of a table"`
}

// Turns an ISO-8601 period into the updatedDate range ending at now
func updatedSince(within string, now time.Time) (string, error) {
	if within == "" {
		return "", nil
	}

	p, err := period.Parse(within)
	if err != nil {
		return "", fmt.Errorf("invalid '--updated-within': %w", err)
	}
	from, _ := p.Negate().AddTo(now)
	return from.Format("20060102") + "-" + now.Format("20060102"), nil
}

func (config *ListConfig) Execute(_ []string) error {
	defer utils.SendEmailOnPanic("list", config.Email)

	if err := config.setup(config.Name, "list"); err != nil {
		return err
	}
	updated, err := updatedSince(config.UpdatedWithin, time.Now())
	if err != nil {
		return err
	}

	opts := estat.StatsListOptions{
		ReaderOptions: config.readerOptions(config.limiter()),
		SearchWord:    config.SearchWord,
		SurveyYears:   config.SurveyYears,
		OpenYears:     config.OpenYears,
		StatsField:    config.StatsField,
		StatsCode:     config.StatsCode,
		CollectArea:   config.CollectArea,
		StartPosition: config.Start,
		Limit:         config.Limit,
		UpdatedDate:   updated,
	}
	if config.NamesOnly {
		opts.StatsNameList = "Y"
	}

	reader, err := estat.NewStatsListReader(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Raw {
		return config.writeRaw(ctx, config.Name, reader)
	}
	res, err := reader.Read(ctx)
	if err != nil {
		utils.SendEmailOnError("list", err, config.Email)
		return err
	}
	logStatus(res.Meta)
	slog.Info(fmt.Sprintf("Found %d tables", res.Frame.Nrow()))

	return config.write(ctx, map[string]estat.Result{config.Name: res})
}
