package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

func init() {
	Register("csv", func(_ context.Context, cfg Config) (Sink, error) {
		return newFileSink(cfg.Dir, "csv")
	})
	Register("json", func(_ context.Context, cfg Config) (Sink, error) {
		return newFileSink(cfg.Dir, "json")
	})
}

// Writes one <name>.csv or <name>.json file per table
type fileSink struct {
	dir    string
	format string
}

func newFileSink(dir, format string) (*fileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &fileSink{dir: dir, format: format}, nil
}

func (s *fileSink) Write(_ context.Context, name string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if df.Ncol() == 0 {
		slog.Warn(fmt.Sprintf("Table '%s' has no columns, nothing to write", name))
		return nil
	}

	path := filepath.Join(s.dir, sanitizeName(name)+"."+s.format)
	outfile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer outfile.Close()

	switch s.format {
	case "json":
		err = df.WriteJSON(outfile)
	default:
		err = df.WriteCSV(outfile)
	}
	if err != nil {
		return fmt.Errorf("could not write '%s': %w", path, err)
	}

	slog.Info(fmt.Sprintf("Wrote %d rows to %s", df.Nrow(), path))
	return nil
}

func (s *fileSink) Close() error {
	return nil
}

// WriteRaw writes an untouched API response to <dir>/<name>.json and returns the path.
// The file is written next to its destination and renamed into place.
func WriteRaw(dir, name string, raw []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}

	path := filepath.Join(dir, sanitizeName(name)+".json")
	tmp, err := os.CreateTemp(dir, ".estat-*")
	if err != nil {
		return "", err
	}

	_, writeErr := tmp.Write(raw)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("could not write '%s': %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}

	slog.Info(fmt.Sprintf("Wrote %d bytes to %s", len(raw), path))
	return path, nil
}
