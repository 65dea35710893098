// Package export writes dataframes read from e-Stat to files or databases
package export

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Sink stores named tables. Write may be called once per table.
type Sink interface {
	Write(ctx context.Context, name string, df dataframe.DataFrame) error
	Close() error
}

type Config struct {
	// Registered sink kind, e.g. "csv", "json", "postgres" or "sqlite"
	Kind string
	// Connection string of database sinks
	DSN string
	// Output directory of file sinks
	Dir string
}

type factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register makes a sink available under kind. It panics if kind is registered twice.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" || f == nil {
		panic("export: invalid sink registration")
	}
	if _, dup := factories[kind]; dup {
		panic("export: sink registered twice: " + kind)
	}
	factories[kind] = f
}

// Kinds lists the registered sink kinds in sorted order
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func Open(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported sink '%s', expected one of %v", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Table and file names keep letters and digits, anything else becomes '_'
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune('_')
	}
	if b.Len() == 0 {
		return "estat"
	}
	return b.String()
}

// Cell values of row i as database values, NA becomes nil
func rowValues(df dataframe.DataFrame, i int) ([]any, error) {
	names := df.Names()
	out := make([]any, len(names))
	for j, name := range names {
		col := df.Col(name)
		elem := col.Elem(i)
		if elem.IsNA() {
			continue
		}

		switch col.Type() {
		case series.Float:
			out[j] = elem.Float()
		case series.Int:
			n, err := elem.Int()
			if err != nil {
				return nil, err
			}
			out[j] = int64(n)
		case series.Bool:
			b, err := elem.Bool()
			if err != nil {
				return nil, err
			}
			out[j] = b
		default:
			out[j] = elem.String()
		}
	}
	return out, nil
}

// SQL type names of a dialect
type dialect struct {
	float   string
	integer string
	boolean string
	text    string
	quote   func(string) string
}

func (d dialect) columnType(t series.Type) string {
	switch t {
	case series.Float:
		return d.float
	case series.Int:
		return d.integer
	case series.Bool:
		return d.boolean
	default:
		return d.text
	}
}

func (d dialect) createTable(table string, df dataframe.DataFrame) string {
	types := df.Types()
	cols := make([]string, 0, df.Ncol())
	for i, name := range df.Names() {
		cols = append(cols, d.quote(name)+" "+d.columnType(types[i]))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))
}

// Double quoted identifier, with embedded quotes doubled
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
