package estat

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

type flatCell struct {
	value  string
	number bool
}

// One flattened record, nested keys joined with '_'
type flatRow struct {
	keys  []string
	cells map[string]flatCell
}

func newFlatRow() *flatRow {
	return &flatRow{cells: make(map[string]flatCell)}
}

func (r *flatRow) set(key string, cell flatCell) {
	if _, ok := r.cells[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.cells[key] = cell
}

func (r *flatRow) clone() *flatRow {
	out := &flatRow{keys: slices.Clone(r.keys), cells: make(map[string]flatCell, len(r.cells))}
	for k, v := range r.cells {
		out.cells[k] = v
	}
	return out
}

// "STAT_NAME_@code" -> "STAT_NAME_code", "STAT_NAME_$" -> "STAT_NAME"
func cleanColname(name string) string {
	return strings.TrimRight(strings.ReplaceAll(name, "@", ""), "_$")
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// Flattens a JSON object into row. Nested objects are expanded,
// lists are kept as their compact JSON text.
func flattenObject(prefix string, raw json.RawMessage, row *flatRow) error {
	fields, err := decodeFields(raw)
	if err != nil {
		return err
	}

	for _, f := range fields {
		if err := flattenField(joinKey(prefix, f.Key), f.Value, row); err != nil {
			return err
		}
	}
	return nil
}

func flattenField(key string, value json.RawMessage, row *flatRow) error {
	switch rawKind(value) {
	case '{':
		return flattenObject(key, value, row)
	case 'n':
		// null leaves the cell missing
	case '"', '[', 't', 'f':
		v, _ := rawString(value)
		row.set(cleanColname(key), flatCell{value: v})
	default:
		v, _ := rawString(value)
		row.set(cleanColname(key), flatCell{value: v, number: true})
	}
	return nil
}

// Flattens a list of records such as DATALIST_INF.TABLE_INF
func flattenRecords(items []json.RawMessage) ([]*flatRow, error) {
	rows := make([]*flatRow, 0, len(items))
	for i, item := range items {
		row := newFlatRow()
		if err := flattenObject("", item, row); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Builds a dataframe with one column per flattened key, in order of first appearance.
// Columns holding only JSON numbers are numeric, all others are strings so that
// codes keep their leading zeros.
func flatFrame(rows []*flatRow) dataframe.DataFrame {
	var names []string
	for _, r := range rows {
		for _, k := range r.keys {
			if !slices.Contains(names, k) {
				names = append(names, k)
			}
		}
	}
	if len(names) == 0 {
		return dataframe.DataFrame{}
	}

	cols := make([]series.Series, 0, len(names))
	for _, name := range names {
		cols = append(cols, flatColumn(rows, name))
	}
	return dataframe.New(cols...)
}

func flatColumn(rows []*flatRow, name string) series.Series {
	numeric, integer := true, true
	for _, r := range rows {
		cell, ok := r.cells[name]
		if !ok {
			continue
		}
		if !cell.number {
			numeric = false
			break
		}
		if _, err := strconv.Atoi(cell.value); err != nil {
			integer = false
		}
	}

	values := make([]interface{}, len(rows))
	for i, r := range rows {
		cell, ok := r.cells[name]
		if !ok {
			continue
		}
		switch {
		case numeric && integer:
			values[i], _ = strconv.Atoi(cell.value)
		case numeric:
			values[i], _ = strconv.ParseFloat(cell.value, 64)
		default:
			values[i] = cell.value
		}
	}

	switch {
	case numeric && integer:
		return series.New(values, series.Int, name)
	case numeric:
		return series.New(values, series.Float, name)
	default:
		return series.New(values, series.String, name)
	}
}
