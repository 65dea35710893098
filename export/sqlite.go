package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gota/gota/dataframe"
	_ "modernc.org/sqlite"
)

func init() {
	Register("sqlite", newSQLiteSink)
}

var sqliteDialect = dialect{
	float:   "REAL",
	integer: "INTEGER",
	boolean: "INTEGER",
	text:    "TEXT",
	quote:   quoteIdent,
}

type sqliteSink struct {
	db *sql.DB
}

func newSQLiteSink(ctx context.Context, cfg Config) (Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "estat.db"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSink{db: db}, nil
}

// Inserts all rows of df in a single transaction
func (s *sqliteSink) Write(ctx context.Context, name string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if df.Ncol() == 0 {
		slog.Warn(fmt.Sprintf("Table '%s' has no columns, nothing to write", name))
		return nil
	}

	table := quoteIdent(sanitizeName(name))
	if _, err := s.db.ExecContext(ctx, sqliteDialect.createTable(table, df)); err != nil {
		return fmt.Errorf("could not create %s: %w", table, err)
	}

	cols := make([]string, 0, df.Ncol())
	marks := make([]string, 0, df.Ncol())
	for _, c := range df.Names() {
		cols = append(cols, quoteIdent(c))
		marks = append(marks, "?")
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < df.Nrow(); i++ {
		values, err := rowValues(df, i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("could not insert row %d into %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("Inserted %d rows into %s", df.Nrow(), table))
	return nil
}

func (s *sqliteSink) Close() error {
	return s.db.Close()
}
