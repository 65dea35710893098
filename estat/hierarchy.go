package estat

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/zeebo/xxh3"
)

type HierarchyOptions struct {
	// Carry the nearest shallower code into levels skipped by the ancestry
	FillNA bool
	// Keep only levels 1..MaxLevel and drop the resulting duplicate rows, 0 keeps every level
	MaxLevel int
}

// Column holding the "<code>_<name>" label of a level
func (s ClassificationSet) levelLabelName(n int) string {
	return fmt.Sprintf("%s階層%d", s.ID, n)
}

// Hierarchy derives the ancestor chain of every leaf entry, a leaf being
// an entry whose code is never used as the parentCode of another entry.
// Walking up stops silently at empty or dangling parent codes.
//
// Columns are "<id>_code" (the leaf), level1..levelN and "<id>階層1".."<id>階層N".
func (s ClassificationSet) Hierarchy(opts HierarchyOptions) dataframe.DataFrame {
	entries := s.uniqueEntries()

	byCode := make(map[string]ClassificationEntry, len(entries))
	parents := make(map[string]bool)
	for _, e := range entries {
		byCode[e.Code] = e
		// An entry listed as its own parent is still a leaf
		if e.ParentCode != "" && e.ParentCode != e.Code {
			parents[e.ParentCode] = true
		}
	}

	levels := s.Levels()
	maxLevel := 0
	if len(levels) > 0 {
		maxLevel = levels[len(levels)-1]
	}

	var leaves []string
	chains := make([][]interface{}, maxLevel)
	for _, e := range entries {
		if parents[e.Code] {
			continue
		}
		leaves = append(leaves, e.Code)

		chain := walkAncestors(e, byCode)
		var last interface{}
		for n := 1; n <= maxLevel; n++ {
			code, ok := chain[n]
			switch {
			case ok:
				last = code
				chains[n-1] = append(chains[n-1], code)
			case opts.FillNA:
				chains[n-1] = append(chains[n-1], last)
			default:
				chains[n-1] = append(chains[n-1], nil)
			}
		}
	}

	cols := []series.Series{series.New(leaves, series.String, s.ID+"_code")}
	names := []string{s.ID + "_code"}
	for n := 1; n <= maxLevel; n++ {
		values := chains[n-1]
		if values == nil {
			values = []interface{}{}
		}
		cols = append(cols, series.New(values, series.String, fmt.Sprintf("level%d", n)))
		names = append(names, fmt.Sprintf("level%d", n))
	}
	chain := dataframe.New(cols...)

	// Join back the labels of every level
	labels := make([]string, 0, len(entries))
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
		labels = append(labels, e.Code+"_"+e.Name)
	}
	for n := 1; n <= maxLevel; n++ {
		key := fmt.Sprintf("level%d", n)
		lookup := dataframe.New(
			series.New(codes, series.String, key),
			series.New(labels, series.String, s.levelLabelName(n)),
		)
		chain = chain.LeftJoin(lookup, key)
	}
	for n := 1; n <= maxLevel; n++ {
		names = append(names, s.levelLabelName(n))
	}
	chain = chain.Select(names)

	if opts.MaxLevel > 0 && opts.MaxLevel < maxLevel {
		var keep []string
		for n := 1; n <= opts.MaxLevel; n++ {
			keep = append(keep, fmt.Sprintf("level%d", n))
		}
		for n := 1; n <= opts.MaxLevel; n++ {
			keep = append(keep, s.levelLabelName(n))
		}
		chain = dropDuplicateRows(chain.Select(keep))
	}
	return chain
}

// Maps level -> code for the entry and its ancestors
func walkAncestors(e ClassificationEntry, byCode map[string]ClassificationEntry) map[int]string {
	chain := make(map[int]string)
	visited := map[string]bool{}

	for {
		if visited[e.Code] {
			break
		}
		visited[e.Code] = true
		if e.Level != nil {
			chain[*e.Level] = e.Code
		}

		if e.ParentCode == "" {
			break
		}
		parent, ok := byCode[e.ParentCode]
		if !ok {
			break
		}
		e = parent
	}
	return chain
}

// Keeps the first occurrence of every distinct row
func dropDuplicateRows(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}

	records := df.Records()
	seen := make(map[uint64]bool, len(records)-1)
	var keep []int
	for i, row := range records[1:] {
		h := rowHash(row)
		if seen[h] {
			continue
		}
		seen[h] = true
		keep = append(keep, i)
	}
	return df.Subset(keep)
}

func rowHash(row []string) uint64 {
	h := xxh3.New()
	for _, cell := range row {
		h.WriteString(cell)
		h.Write([]byte{0x1f})
	}
	return h.Sum64()
}
