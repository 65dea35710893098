package estat

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-gota/gota/dataframe"
)

// StatsDataReader reads the observations of a statistics table (getStatsData),
// merged with the labels of every classification
type StatsDataReader struct {
	reader
	naValue   *float64
	paginator Paginator
}

func NewStatsDataReader(opts StatsDataOptions) (*StatsDataReader, error) {
	if opts.StatsDataID == "" {
		return nil, &ConfigError{Field: "StatsDataID", Msg: "is required"}
	}
	if opts.ReplaceSpChar != nil && (*opts.ReplaceSpChar < 0 || *opts.ReplaceSpChar > 3) {
		return nil, &ConfigError{Field: "ReplaceSpChar", Msg: "must be between 0 and 3"}
	}
	for dim := range opts.Filters {
		if !dim.Valid() {
			return nil, &ConfigError{Field: "Filters", Msg: fmt.Sprintf("unknown dimension '%s'", dim)}
		}
	}

	r, err := newReader(&opts.ReaderOptions, EndpointStatsData, OpStatsData)
	if err != nil {
		return nil, err
	}
	r.params = opts.Params()

	sdr := &StatsDataReader{reader: r, naValue: opts.NAValue}
	pageSize, total, countFirst := opts.pageLimits()
	sdr.paginator = Paginator{
		Params:     r.params,
		PageSize:   pageSize,
		Max:        total,
		CountFirst: countFirst,
		Strategy:   opts.Strategy,
	}
	sdr.paginator.Page = sdr.page
	return sdr, nil
}

// Builds one response into the merged observation table
func (r *StatsDataReader) page(ctx context.Context, params url.Values) (Page, error) {
	raw, meta, err := r.fetchEnvelope(ctx, params)
	if err != nil {
		return Page{}, err
	}

	body, err := requireEnvelope(r.op, raw)
	if err != nil {
		return Page{Meta: meta}, err
	}

	sd := body.StatisticalData
	if sd == nil {
		return Page{Meta: meta}, fmt.Errorf("%w: missing STATISTICAL_DATA", ErrMalformedPayload)
	}
	if sd.DataInf == nil || len(sd.DataInf.Value) == 0 {
		// No data is reported through STATUS, the table is simply empty
		if meta.Status != nil && !meta.OK() {
			return Page{Meta: meta}, nil
		}
		return Page{Meta: meta}, fmt.Errorf("%w: missing DATA_INF.VALUE", ErrMalformedPayload)
	}

	obs, err := BuildObservations(sd.DataInf.Value, meta.Notes, r.naValue)
	if err != nil {
		return Page{Meta: meta}, err
	}
	sets := parseClassSets(sd.ClassInf)
	return Page{Frame: Merge(obs, sets), Meta: meta, Sets: sets}, nil
}

// Runs the paginator and closes the reader, the frame keeps machine column names
func (r *StatsDataReader) run(ctx context.Context) (Page, Renamer, error) {
	defer r.Close()

	page, err := r.paginator.Run(ctx)
	if err != nil {
		return page, Renamer{}, err
	}
	slog.Info(fmt.Sprintf("Read %d records of %s", page.Frame.Nrow(), page.Meta.StatsDataID))
	return page, Renamer{ClassNames: page.Meta.ClassNameMap(), Localize: r.localize}, nil
}

// Read returns all requested observations as one table, paging through the
// table when it holds more records than a single request returns.
// Column names are localized unless English was requested.
func (r *StatsDataReader) Read(ctx context.Context) (Result, error) {
	page, renamer, err := r.run(ctx)
	if err != nil {
		return Result{Meta: page.Meta}, err
	}
	return Result{Frame: renamer.Rename(page.Frame), Meta: page.Meta}, nil
}

// ReadByUnit reads like Read and splits the table on the unit column.
// Rows without a unit are grouped under NoUnit.
func (r *StatsDataReader) ReadByUnit(ctx context.Context) (map[string]dataframe.DataFrame, Metadata, error) {
	res, err := r.Read(ctx)
	if err != nil {
		return nil, res.Meta, err
	}

	unit := Renamer{Localize: r.localize}.Colname("unit")
	return splitBy(res.Frame, unit), res.Meta, nil
}

// ReadWide returns the observations as a wide table, see Wide
func (r *StatsDataReader) ReadWide(ctx context.Context) (Result, error) {
	page, renamer, err := r.run(ctx)
	if err != nil {
		return Result{Meta: page.Meta}, err
	}
	return Result{Frame: Wide(page.Frame, renamer), Meta: page.Meta}, nil
}

// ReadWideByUnit splits the observations on their unit and returns one wide table per unit
func (r *StatsDataReader) ReadWideByUnit(ctx context.Context) (map[string]dataframe.DataFrame, Metadata, error) {
	page, renamer, err := r.run(ctx)
	if err != nil {
		return nil, page.Meta, err
	}

	out := splitBy(page.Frame, "unit")
	for unit, df := range out {
		out[unit] = Wide(df, renamer)
	}
	return out, page.Meta, nil
}
