package estat

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

var ErrUnknownClass = errors.New("classification not found")

// ClassTable is the table of one classification of a statistics table.
// Hierarchy is only set for hierarchical classes when HasLevelHierarchy was requested.
type ClassTable struct {
	ID        string
	Name      string
	Frame     dataframe.DataFrame
	Hierarchy *dataframe.DataFrame
}

// MetaInfoReader reads the classifications of a statistics table (getMetaInfo)
type MetaInfoReader struct {
	reader
	bare      bool
	hierarchy bool
	hopts     HierarchyOptions
}

func NewMetaInfoReader(opts MetaInfoOptions) (*MetaInfoReader, error) {
	if opts.StatsDataID == "" {
		return nil, &ConfigError{Field: "StatsDataID", Msg: "is required"}
	}

	r, err := newReader(&opts.ReaderOptions, EndpointMetaInfo, OpMetaInfo)
	if err != nil {
		return nil, err
	}
	r.params = opts.Params()
	return &MetaInfoReader{
		reader:    r,
		bare:      opts.BareColnames,
		hierarchy: opts.HasLevelHierarchy,
		hopts:     opts.Hierarchy,
	}, nil
}

// Read returns the classification with the most entries, the time axis excluded.
// With HasLevelHierarchy a hierarchical classification is returned as its ancestor chain.
func (r *MetaInfoReader) Read(ctx context.Context) (Result, error) {
	defer r.Close()

	meta, sets, err := r.classSets(ctx)
	if err != nil {
		return Result{Meta: meta}, err
	}

	var largest *ClassificationSet
	for i := range sets {
		if sets[i].ID == string(DimTime) {
			continue
		}
		if largest == nil || len(sets[i].Entries) > len(largest.Entries) {
			largest = &sets[i]
		}
	}
	if largest == nil {
		return Result{Meta: meta}, nil
	}
	table := r.classTable(*largest, meta)
	if table.Hierarchy != nil {
		return Result{Frame: *table.Hierarchy, Meta: meta}, nil
	}
	return Result{Frame: table.Frame, Meta: meta}, nil
}

// ReadClassObjects returns the tables of all classifications in CLASS_OBJ order.
// An error status or a response without CLASS_INF gives an empty list.
func (r *MetaInfoReader) ReadClassObjects(ctx context.Context) ([]ClassTable, Metadata, error) {
	defer r.Close()

	meta, sets, err := r.classSets(ctx)
	if err != nil {
		return nil, meta, err
	}

	tables := make([]ClassTable, 0, len(sets))
	for _, s := range sets {
		tables = append(tables, r.classTable(s, meta))
	}
	return tables, meta, nil
}

// ReadHierarchy returns the ancestor chain of every leaf of the classification id
func (r *MetaInfoReader) ReadHierarchy(ctx context.Context, id string) (Result, error) {
	defer r.Close()

	meta, sets, err := r.classSets(ctx)
	if err != nil {
		return Result{Meta: meta}, err
	}

	for _, s := range sets {
		if s.ID == id {
			renamer := Renamer{ClassNames: meta.ClassNameMap(), Localize: r.localize}
			return Result{Frame: renamer.Rename(s.Hierarchy(r.hopts)), Meta: meta}, nil
		}
	}
	return Result{Meta: meta}, fmt.Errorf("%w: %s in %s", ErrUnknownClass, id, meta.StatsDataID)
}

func (r *MetaInfoReader) classSets(ctx context.Context) (Metadata, []ClassificationSet, error) {
	raw, meta, err := r.fetchEnvelope(ctx, r.params)
	if err != nil {
		return Metadata{}, nil, err
	}

	body, err := requireEnvelope(r.op, raw)
	if err != nil {
		return meta, nil, err
	}
	if body.MetadataInf == nil {
		return meta, nil, nil
	}
	return meta, parseClassSets(body.MetadataInf.ClassInf), nil
}

func (r *MetaInfoReader) classTable(s ClassificationSet, meta Metadata) ClassTable {
	table := ClassTable{ID: s.ID, Name: s.Name, Frame: r.renameClassTable(s, s.Table(!r.bare), meta)}

	if r.hierarchy && s.Hierarchical() {
		renamer := Renamer{ClassNames: meta.ClassNameMap(), Localize: r.localize}
		chain := renamer.Rename(s.Hierarchy(r.hopts))
		table.Hierarchy = &chain
	}
	return table
}

// Prefixed tables go through the Renamer, unprefixed ones get the class name
// as the label column and localized attribute names
func (r *MetaInfoReader) renameClassTable(s ClassificationSet, df dataframe.DataFrame, meta Metadata) dataframe.DataFrame {
	if !r.localize {
		return df
	}
	if !r.bare {
		return Renamer{ClassNames: meta.ClassNameMap(), Localize: true}.Rename(df)
	}

	mapping := make(map[string]string, df.Ncol())
	for _, name := range df.Names() {
		if name == "name" {
			mapping[name] = s.Name
			continue
		}
		mapping[name] = ColnameToJapanese(name)
	}
	return renameColumns(df, mapping)
}
