package estat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-gota/gota/dataframe"
)

// Result pairs a table with the envelope metadata of the response it was built from.
// Meta is filled even when building the table failed.
type Result struct {
	Frame dataframe.DataFrame
	Meta  Metadata
}

// Common state of the endpoint readers
type reader struct {
	fetcher  Fetcher
	url      string
	op       string
	params   url.Values
	localize bool
}

func newReader(opts *ReaderOptions, endpoint Endpoint, op string) (reader, error) {
	if err := opts.setup(); err != nil {
		return reader{}, err
	}
	return reader{
		fetcher:  opts.Fetcher,
		url:      EndpointURL(opts.BaseURL, endpoint),
		op:       op,
		localize: opts.localized(),
	}, nil
}

// Close releases the HTTP session, readers can still be used afterwards
func (r reader) Close() {
	r.fetcher.Close()
}

func (r reader) get(ctx context.Context, params url.Values) ([]byte, error) {
	return r.fetcher.Fetch(ctx, r.url, params)
}

// Fetches the response for params and decodes its metadata, logging API level errors
func (r reader) fetchEnvelope(ctx context.Context, params url.Values) ([]byte, Metadata, error) {
	raw, err := r.get(ctx, params)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := ExtractMetadata(r.op, raw)
	if err != nil {
		return raw, Metadata{}, err
	}
	if meta.Status != nil && !meta.OK() {
		slog.Warn(fmt.Sprintf("%s returned status %d: %s", r.op, *meta.Status, meta.ErrorMsg))
	}
	return raw, meta, nil
}

// ReadJSON returns the untouched response body together with its metadata
func (r reader) ReadJSON(ctx context.Context) (json.RawMessage, Metadata, error) {
	defer r.Close()

	raw, meta, err := r.fetchEnvelope(ctx, r.params)
	if err != nil {
		return nil, Metadata{}, err
	}
	return json.RawMessage(raw), meta, nil
}
