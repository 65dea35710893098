package estat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Attribute of a classification entry, with the '@' sigil stripped
type Attr struct {
	Key   string
	Value string
}

// ClassificationEntry is one code of a classification.
// A nil Level means that the classification has no hierarchy at this entry.
type ClassificationEntry struct {
	Code       string
	Name       string
	Level      *int
	Unit       string
	ParentCode string

	// All attributes in document order, including the ones above
	Attrs []Attr
}

func (e ClassificationEntry) attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ClassificationSet is one dimension of a statistics table (CLASS_OBJ)
type ClassificationSet struct {
	ID      string
	Name    string
	Entries []ClassificationEntry

	// Attribute keys in order of first appearance
	columns []string
}

var errNotClassList = errors.New("CLASS is neither an object nor a list")

// Parses all classifications of a CLASS_INF block.
// Broken classifications are skipped, the remaining ones are returned in order.
func parseClassSets(ci *classInf) []ClassificationSet {
	if ci == nil {
		return nil
	}

	items, err := rawItems(ci.ClassObj)
	if err != nil {
		slog.Warn("Could not decode CLASS_OBJ, skipping all classifications: " + err.Error())
		return nil
	}

	sets := make([]ClassificationSet, 0, len(items))
	for i, item := range items {
		set, err := parseClassObject(item)
		if err != nil {
			slog.Warn(fmt.Sprintf("Skipping classification %d: %s", i, err))
			continue
		}
		sets = append(sets, set)
	}
	return sets
}

func parseClassObject(raw json.RawMessage) (ClassificationSet, error) {
	if rawKind(raw) != '{' {
		return ClassificationSet{}, errors.New("class object is not a JSON object")
	}

	var obj struct {
		ID    *string         `json:"@id"`
		Name  *string         `json:"@name"`
		Class json.RawMessage `json:"CLASS"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ClassificationSet{}, err
	}
	if obj.ID == nil || obj.Name == nil {
		return ClassificationSet{}, errors.New("missing '@id' or '@name'")
	}

	set := ClassificationSet{ID: *obj.ID, Name: *obj.Name}
	switch rawKind(obj.Class) {
	case '{', '[':
	default:
		return ClassificationSet{}, fmt.Errorf("%s (%s): %w", set.ID, set.Name, errNotClassList)
	}

	items, err := rawItems(obj.Class)
	if err != nil {
		return ClassificationSet{}, err
	}
	for _, item := range items {
		entry, err := parseClassEntry(item)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s: skipping class entry: %s", set.ID, err))
			continue
		}
		set.Add(entry)
	}
	return set, nil
}

func parseClassEntry(raw json.RawMessage) (ClassificationEntry, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return ClassificationEntry{}, err
	}

	var entry ClassificationEntry
	for _, f := range fields {
		value, ok := rawString(f.Value)
		if !ok {
			continue
		}
		entry.Attrs = append(entry.Attrs, Attr{Key: strings.TrimPrefix(f.Key, "@"), Value: value})
	}
	entry.resolve()
	return entry, nil
}

// Fills the typed fields from Attrs
func (e *ClassificationEntry) resolve() {
	e.Code, _ = e.attr("code")
	e.Name, _ = e.attr("name")
	e.Unit, _ = e.attr("unit")
	e.ParentCode, _ = e.attr("parentCode")

	e.Level = nil
	// An empty level means "no hierarchy", not a parse failure
	if lv, ok := e.attr("level"); ok && lv != "" {
		if n, err := strconv.Atoi(lv); err == nil {
			e.Level = &n
		}
	}
}

// Appends an entry, keeping track of the attribute columns
func (s *ClassificationSet) Add(e ClassificationEntry) *ClassificationSet {
	if len(e.Attrs) == 0 {
		e.Attrs = entryAttrs(e)
	}
	e.resolve()

	for _, a := range e.Attrs {
		if !slices.Contains(s.columns, a.Key) {
			s.columns = append(s.columns, a.Key)
		}
	}
	s.Entries = append(s.Entries, e)
	return s
}

// Builds Attrs for an entry that was constructed from its typed fields
func entryAttrs(e ClassificationEntry) []Attr {
	attrs := []Attr{{"code", e.Code}, {"name", e.Name}}
	if e.Level != nil {
		attrs = append(attrs, Attr{"level", strconv.Itoa(*e.Level)})
	}
	if e.Unit != "" {
		attrs = append(attrs, Attr{"unit", e.Unit})
	}
	if e.ParentCode != "" {
		attrs = append(attrs, Attr{"parentCode", e.ParentCode})
	}
	return attrs
}

// Distinct hierarchy levels, in ascending order
func (s ClassificationSet) Levels() []int {
	var levels []int
	for _, e := range s.Entries {
		if e.Level != nil && !slices.Contains(levels, *e.Level) {
			levels = append(levels, *e.Level)
		}
	}
	slices.Sort(levels)
	return levels
}

func (s ClassificationSet) Hierarchical() bool {
	return len(s.Levels()) > 1
}

// Codes of the set, first occurrence wins for duplicates
func (s ClassificationSet) uniqueEntries() []ClassificationEntry {
	seen := make(map[string]bool, len(s.Entries))
	out := make([]ClassificationEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if seen[e.Code] {
			continue
		}
		seen[e.Code] = true
		out = append(out, e)
	}
	return out
}

// Column name of an attribute, "<id>_<attr>" when prefixed
func (s ClassificationSet) colname(attr string, prefix bool) string {
	if prefix {
		return s.ID + "_" + attr
	}
	return attr
}

// Table converts the classification into a dataframe with one row per entry.
// The code column always comes first, followed by the attributes in document order.
// Attributes missing on an entry are NA, level is an integer column.
func (s ClassificationSet) Table(prefix bool) dataframe.DataFrame {
	return s.table(s.Entries, prefix)
}

func (s ClassificationSet) table(entries []ClassificationEntry, prefix bool) dataframe.DataFrame {
	columns := []string{"code"}
	for _, c := range s.columns {
		if c != "code" {
			columns = append(columns, c)
		}
	}

	cols := make([]series.Series, 0, len(columns))
	for _, c := range columns {
		values := make([]interface{}, len(entries))
		t := series.String
		if c == "level" {
			t = series.Int
		}

		for i, e := range entries {
			switch {
			case c == "level":
				if e.Level != nil {
					values[i] = *e.Level
				}
			default:
				if v, ok := e.attr(c); ok {
					values[i] = v
				}
			}
		}
		cols = append(cols, series.New(values, t, s.colname(c, prefix)))
	}
	return dataframe.New(cols...)
}
