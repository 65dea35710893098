package estat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ObservationTable is the flattened DATA_INF.VALUE list, one row per record
type ObservationTable struct {
	Frame dataframe.DataFrame
	// All columns except value, in record order
	CategoryColumns []string
}

// BuildObservations turns the raw VALUE records into a table. Attribute keys lose
// their '@' sigil and the "$" content becomes the float column "value".
// Values equal to one of the declared markers are missing, and so are values
// that cannot be parsed. Missing values are NA, or naValue when given.
func BuildObservations(raw json.RawMessage, notes []Note, naValue *float64) (ObservationTable, error) {
	items, err := rawItems(raw)
	if err != nil {
		return ObservationTable{}, fmt.Errorf("%w: could not decode VALUE: %s", ErrMalformedPayload, err)
	}

	var columns []string
	rows := make([]map[string]string, 0, len(items))
	for i, item := range items {
		fields, err := decodeFields(item)
		if err != nil {
			return ObservationTable{}, fmt.Errorf("%w: VALUE record %d: %s", ErrMalformedPayload, i, err)
		}

		row := make(map[string]string, len(fields))
		for _, f := range fields {
			name := strings.TrimPrefix(f.Key, "@")
			if f.Key == "$" {
				name = "value"
			}
			if !slices.Contains(columns, name) {
				columns = append(columns, name)
			}
			if v, ok := rawString(f.Value); ok {
				row[name] = v
			}
		}
		rows = append(rows, row)
	}

	if !slices.Contains(columns, "value") {
		columns = append(columns, "value")
	}

	markers := make(map[string]bool, len(notes))
	for _, n := range notes {
		markers[n.Char] = true
	}

	var table ObservationTable
	cols := make([]series.Series, 0, len(columns))
	for _, c := range columns {
		if c == "value" {
			cols = append(cols, parseValues(rows, markers, naValue))
			continue
		}

		table.CategoryColumns = append(table.CategoryColumns, c)
		values := make([]interface{}, len(rows))
		for i, row := range rows {
			if v, ok := row[c]; ok {
				values[i] = v
			}
		}
		cols = append(cols, series.New(values, series.String, c))
	}

	table.Frame = dataframe.New(cols...)
	return table, table.Frame.Err
}

func parseValues(rows []map[string]string, markers map[string]bool, naValue *float64) series.Series {
	var missing interface{}
	if naValue != nil {
		missing = *naValue
	}

	unparsed := 0
	values := make([]interface{}, len(rows))
	for i, row := range rows {
		raw, ok := row["value"]
		if !ok || markers[raw] {
			values[i] = missing
			continue
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			unparsed++
			values[i] = missing
			continue
		}
		values[i] = f
	}

	if unparsed > 0 {
		slog.Warn(fmt.Sprintf("%d values could not be parsed as numbers and were set to missing", unparsed))
	}
	return series.New(values, series.Float, "value")
}
