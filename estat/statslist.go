package estat

import (
	"context"
	"fmt"
)

// StatsListReader lists the statistics tables matching a search (getStatsList)
type StatsListReader struct {
	reader
}

func NewStatsListReader(opts StatsListOptions) (*StatsListReader, error) {
	r, err := newReader(&opts.ReaderOptions, EndpointStatsList, OpStatsList)
	if err != nil {
		return nil, err
	}
	r.params = opts.Params()
	return &StatsListReader{reader: r}, nil
}

// Read returns one row per table, with nested fields flattened into
// columns such as "STAT_NAME_code" and "STAT_NAME".
// An error status from the API yields an empty table and the status in Meta.
func (r *StatsListReader) Read(ctx context.Context) (Result, error) {
	defer r.Close()

	raw, meta, err := r.fetchEnvelope(ctx, r.params)
	if err != nil {
		return Result{}, err
	}

	body, err := requireEnvelope(r.op, raw)
	if err != nil {
		return Result{Meta: meta}, err
	}
	if body.DatalistInf == nil {
		return Result{Meta: meta}, nil
	}

	items, err := rawItems(body.DatalistInf.TableInf)
	if err != nil {
		return Result{Meta: meta}, fmt.Errorf("%w: TABLE_INF: %s", ErrMalformedPayload, err)
	}
	rows, err := flattenRecords(items)
	if err != nil {
		return Result{Meta: meta}, fmt.Errorf("%w: TABLE_INF %s", ErrMalformedPayload, err)
	}
	return Result{Frame: flatFrame(rows), Meta: meta}, nil
}
