package estat

import (
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Merge enriches the observation table with the attributes of every classification.
//
// For each classification whose id is a column of the table, the column is renamed to
// "<id>_code" and the classification attributes are left joined on it as "<id>_name",
// "<id>_level", "<id>_unit" and so on. The unit column is never renamed. Codes without a
// matching entry get NA attributes. Row order and row count are those of the observations,
// the joined columns follow the observation columns in classification order.
func Merge(obs ObservationTable, sets []ClassificationSet) dataframe.DataFrame {
	df := obs.Frame
	if len(sets) == 0 || df.Err != nil {
		return df
	}

	names := df.Names()
	byID := make(map[string]ClassificationSet, len(sets))
	for _, s := range sets {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}

	cols := make([]series.Series, 0, len(names)+2*len(sets))
	for _, name := range names {
		col := df.Col(name).Copy()
		if _, ok := byID[name]; ok && name != "unit" && name != "value" {
			col.Name = name + "_code"
		}
		cols = append(cols, col)
	}

	joined := make(map[string]bool)
	for _, set := range sets {
		if set.ID == "unit" || set.ID == "value" || joined[set.ID] || !slices.Contains(names, set.ID) {
			continue
		}
		joined[set.ID] = true
		cols = append(cols, joinOnCode(df.Col(set.ID), set)...)
	}
	return dataframe.New(cols...)
}

// Left join of the classification attributes on a column of codes.
// Returns one column per attribute besides the code, aligned with codes.
func joinOnCode(codes series.Series, set ClassificationSet) []series.Series {
	entries := set.uniqueEntries()
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Code] = i
	}

	rows := make([]int, codes.Len())
	for i := range rows {
		rows[i] = -1
		elem := codes.Elem(i)
		if elem.IsNA() {
			continue
		}
		if j, ok := index[elem.String()]; ok {
			rows[i] = j
		}
	}

	table := set.table(entries, true)
	codeCol := set.colname("code", true)

	var out []series.Series
	for _, name := range table.Names() {
		if name == codeCol {
			continue
		}
		attr := table.Col(name)
		values := make([]interface{}, len(rows))
		for i, j := range rows {
			if j >= 0 {
				values[i] = attr.Elem(j).Val()
			}
		}
		out = append(out, series.New(values, attr.Type(), name))
	}
	return out
}
