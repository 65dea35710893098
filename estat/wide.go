package estat

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Class attributes left out of the wide table, only the labels are kept
var wideDropped = []string{"code", "level", "unit", "parentCode", "addInf"}

const (
	tabLabel   = string(DimTab) + "_name"
	valueLabel = "value"
)

func dropFromWide(name string) bool {
	if name == "unit" {
		return true
	}
	_, attr, ok := strings.Cut(name, "_")
	return ok && slices.Contains(wideDropped, attr)
}

// Display name of a column of the wide table. Label columns lose their "_name" suffix.
func (r Renamer) wideColname(name string) string {
	if r.Localize {
		return r.Colname(name)
	}
	return strings.TrimSuffix(name, "_name")
}

// Wide turns a merged table with machine column names into one row per combination of labels.
//
// Codes, levels, units and extra attributes are dropped. When the table has a tab label
// column, every distinct tab label becomes a value column, keyed on the remaining label
// columns. Keys and tab labels keep the order in which they are first seen. Combinations
// without an observation are NA, duplicates keep the first value.
func Wide(df dataframe.DataFrame, r Renamer) dataframe.DataFrame {
	if df.Err != nil || df.Ncol() == 0 {
		return df
	}

	var keep []string
	for _, name := range df.Names() {
		if !dropFromWide(name) {
			keep = append(keep, name)
		}
	}

	if !slices.Contains(keep, tabLabel) || !slices.Contains(keep, valueLabel) {
		mapping := make(map[string]string, len(keep))
		for _, name := range keep {
			mapping[name] = r.wideColname(name)
		}
		return renameColumns(df.Select(keep), mapping)
	}
	return pivotTab(df, keep, r)
}

func pivotTab(df dataframe.DataFrame, keep []string, r Renamer) dataframe.DataFrame {
	var keys []string
	for _, name := range keep {
		if name != tabLabel && strings.HasSuffix(name, "_name") {
			keys = append(keys, name)
		}
	}

	keyCols := make([]series.Series, len(keys))
	for i, k := range keys {
		keyCols[i] = df.Col(k)
	}
	tabs := df.Col(tabLabel)
	values := df.Col(valueLabel)

	var firstRows []int
	rowIndex := make(map[string]int)
	var labels []string
	cells := make(map[string][]interface{})
	filled := make(map[string]bool)
	duplicates := 0
	for i := 0; i < df.Nrow(); i++ {
		parts := make([]string, len(keyCols))
		for j, col := range keyCols {
			parts[j] = col.Elem(i).String()
		}
		key := strings.Join(parts, "\x1f")

		row, ok := rowIndex[key]
		if !ok {
			row = len(firstRows)
			rowIndex[key] = row
			firstRows = append(firstRows, i)
			for _, label := range labels {
				cells[label] = append(cells[label], nil)
			}
		}

		label := tabs.Elem(i).String()
		if _, seen := cells[label]; !seen {
			labels = append(labels, label)
			cells[label] = make([]interface{}, len(firstRows))
		}

		cell := fmt.Sprintf("%d\x1f%s", row, label)
		if filled[cell] {
			duplicates++
			continue
		}
		filled[cell] = true
		if elem := values.Elem(i); !elem.IsNA() {
			cells[label][row] = elem.Float()
		}
	}
	if duplicates > 0 {
		slog.Warn(fmt.Sprintf("%d observations share labels with another one, kept the first", duplicates))
	}

	cols := make([]series.Series, 0, len(keys)+len(labels))
	for i, k := range keys {
		col := keyCols[i].Subset(firstRows)
		col.Name = r.wideColname(k)
		cols = append(cols, col)
	}
	for _, label := range labels {
		cols = append(cols, series.New(cells[label], series.Float, label))
	}
	return dataframe.New(cols...)
}
