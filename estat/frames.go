package estat

import (
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Label used for rows without a unit when splitting by unit
const NoUnit = "単位なし"

// Returns a copy of df with the columns renamed according to mapping
func renameColumns(df dataframe.DataFrame, mapping map[string]string) dataframe.DataFrame {
	names := df.Names()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		col := df.Col(name).Copy()
		if to, ok := mapping[name]; ok {
			col.Name = to
		}
		cols[i] = col
	}
	return dataframe.New(cols...)
}

// Stacks frames in order. Columns missing from a frame are filled with NA,
// the column order is the order of first appearance.
func concatFrames(frames []dataframe.DataFrame) dataframe.DataFrame {
	var names []string
	types := map[string]series.Type{}
	var nonEmpty []dataframe.DataFrame
	for _, f := range frames {
		if f.Err != nil || f.Ncol() == 0 {
			continue
		}
		nonEmpty = append(nonEmpty, f)
		for i, name := range f.Names() {
			if !slices.Contains(names, name) {
				names = append(names, name)
				types[name] = f.Types()[i]
			}
		}
	}

	switch len(nonEmpty) {
	case 0:
		if len(frames) > 0 {
			return frames[0]
		}
		return dataframe.DataFrame{}
	case 1:
		return nonEmpty[0]
	}

	var out dataframe.DataFrame
	for i, f := range nonEmpty {
		f = alignColumns(f, names, types)
		if i == 0 {
			out = f
			continue
		}
		out = out.RBind(f)
	}
	return out
}

func alignColumns(df dataframe.DataFrame, names []string, types map[string]series.Type) dataframe.DataFrame {
	have := df.Names()
	cols := make([]series.Series, 0, len(names))
	for _, name := range names {
		if slices.Contains(have, name) {
			cols = append(cols, df.Col(name))
			continue
		}
		cols = append(cols, series.New(make([]interface{}, df.Nrow()), types[name], name))
	}
	return dataframe.New(cols...)
}

// Splits df on the distinct values of column, NA rows are grouped under NoUnit.
// The rows of each group keep their original order.
func splitBy(df dataframe.DataFrame, column string) map[string]dataframe.DataFrame {
	out := make(map[string]dataframe.DataFrame)
	if df.Err != nil || !slices.Contains(df.Names(), column) {
		out[NoUnit] = df
		return out
	}

	col := df.Col(column)
	groups := make(map[string][]int)
	var order []string
	for i := 0; i < col.Len(); i++ {
		key := NoUnit
		if elem := col.Elem(i); !elem.IsNA() && elem.String() != "" {
			key = elem.String()
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		out[key] = df.Subset(groups[key])
	}
	return out
}
