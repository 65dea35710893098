package estat

import (
	"context"
	"encoding/json"
	"fmt"
)

// DataCatalogReader lists downloadable files and databases (getDataCatalog)
type DataCatalogReader struct {
	reader
}

func NewDataCatalogReader(opts DataCatalogOptions) (*DataCatalogReader, error) {
	r, err := newReader(&opts.ReaderOptions, EndpointDataCatalog, OpDataCatalog)
	if err != nil {
		return nil, err
	}
	r.params = opts.Params()
	return &DataCatalogReader{reader: r}, nil
}

// Read returns one row per resource of every catalog entry. The dataset fields are
// repeated on each row, resource fields are prefixed with "RESOURCE_".
// Entries without resources give a single row.
func (r *DataCatalogReader) Read(ctx context.Context) (Result, error) {
	defer r.Close()

	raw, meta, err := r.fetchEnvelope(ctx, r.params)
	if err != nil {
		return Result{}, err
	}

	body, err := requireEnvelope(r.op, raw)
	if err != nil {
		return Result{Meta: meta}, err
	}
	if body.DataCatalogListInf == nil {
		return Result{Meta: meta}, nil
	}

	items, err := rawItems(body.DataCatalogListInf.DataCatalogInf)
	if err != nil {
		return Result{Meta: meta}, fmt.Errorf("%w: DATA_CATALOG_INF: %s", ErrMalformedPayload, err)
	}

	var rows []*flatRow
	for i, item := range items {
		entry, err := flattenCatalogEntry(item)
		if err != nil {
			return Result{Meta: meta}, fmt.Errorf("%w: DATA_CATALOG_INF record %d: %s", ErrMalformedPayload, i, err)
		}
		rows = append(rows, entry...)
	}
	return Result{Frame: flatFrame(rows), Meta: meta}, nil
}

func flattenCatalogEntry(raw json.RawMessage) ([]*flatRow, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}

	base := newFlatRow()
	var resources []json.RawMessage
	for _, f := range fields {
		if f.Key == "RESOURCES" && rawKind(f.Value) == '{' {
			var wrapper struct {
				Resource json.RawMessage `json:"RESOURCE"`
			}
			if err := json.Unmarshal(f.Value, &wrapper); err != nil {
				return nil, err
			}
			if len(wrapper.Resource) > 0 {
				if resources, err = rawItems(wrapper.Resource); err != nil {
					return nil, err
				}
				continue
			}
		}

		if err := flattenField(f.Key, f.Value, base); err != nil {
			return nil, err
		}
	}

	if len(resources) == 0 {
		return []*flatRow{base}, nil
	}

	rows := make([]*flatRow, 0, len(resources))
	for _, res := range resources {
		row := base.clone()
		if rawKind(res) == '{' {
			if err := flattenObject("RESOURCE", res, row); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
