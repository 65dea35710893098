package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func init() {
	Register("postgres", newPostgresSink)
}

var postgresDialect = dialect{
	float:   "double precision",
	integer: "bigint",
	boolean: "boolean",
	text:    "text",
	quote:   func(s string) string { return pgx.Identifier{s}.Sanitize() },
}

// Copies every table into public.<name>, creating it if needed
type postgresSink struct {
	pool *pgxpool.Pool
}

// The DSN falls back to the ESTAT_DB_STRING environment variable
func newPostgresSink(ctx context.Context, cfg Config) (Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = os.Getenv("ESTAT_DB_STRING")
	}
	if dsn == "" {
		return nil, errors.New("postgres sink needs a DSN or ESTAT_DB_STRING")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}
	return &postgresSink{pool: pool}, nil
}

func (s *postgresSink) Write(ctx context.Context, name string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if df.Ncol() == 0 {
		slog.Warn(fmt.Sprintf("Table '%s' has no columns, nothing to write", name))
		return nil
	}

	table := pgx.Identifier{"public", sanitizeName(name)}
	if _, err := s.pool.Exec(ctx, postgresDialect.createTable(table.Sanitize(), df)); err != nil {
		return fmt.Errorf("could not create %s: %w", table.Sanitize(), err)
	}

	count, err := s.pool.CopyFrom(
		ctx,
		table,
		df.Names(),
		pgx.CopyFromSlice(df.Nrow(), func(i int) ([]any, error) {
			return rowValues(df, i)
		}),
	)
	if err != nil {
		return fmt.Errorf("could not copy into %s: %w", table.Sanitize(), err)
	}

	slog.Info(fmt.Sprintf("Inserted %d rows into %s", count, table.Sanitize()))
	return nil
}

func (s *postgresSink) Close() error {
	s.pool.Close()
	return nil
}
