package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"estat_reader/estat"
	"estat_reader/export"
	"estat_reader/utils"
)

// Flags shared by every command
type CommonConfig struct {
	APIKey  string        `long:"api-key" description:"e-Stat application id. Defaults to E_STAT_APPLICATION_ID, ESTAT_APPLICATION_ID, E_STAT_API_KEY or ESTAT_API_KEY"`
	Dotenv  string        `long:"dotenv" description:"Dotenv file holding the application id. By default .env and .env.local are tried"`
	Lang    string        `long:"lang" default:"J" choice:"J" choice:"E" description:"Language of the labels, English keeps machine column names"`
	BaseURL string        `long:"base-url" default:"https://api.e-stat.go.jp/rest/3.0/app/json" description:"e-Stat API root"`
	Retry   int           `long:"retry" default:"3" description:"Number of retries of a failed request"`
	Pause   time.Duration `long:"pause" default:"100ms" description:"Pause between retries"`
	Backoff float64       `long:"backoff" default:"1" description:"Factor applied to the pause after each retry"`
	Timeout time.Duration `long:"timeout" default:"30s" description:"Timeout of a single request"`
	Rate    float64       `long:"rate" default:"0" description:"Maximum number of requests per second, 0 means unlimited"`
	Out     string        `long:"out" default:"csv" choice:"csv" choice:"json" choice:"postgres" choice:"sqlite" description:"Where to write the tables"`
	DSN     string        `long:"dsn" description:"Connection string of the postgres or sqlite output. Postgres defaults to ESTAT_DB_STRING"`
	Dir     string        `long:"dir" default:"./" description:"Output directory of csv and json files"`
	Email   []string      `long:"email" description:"Optional email address used to notify if the program crashed"`
	LogFile bool          `long:"log-file" description:"Write the log to '<name>_<command>_log.txt' instead of stderr"`
}

func (config *CommonConfig) setup(name, command string) error {
	if config.Retry < 0 {
		return fmt.Errorf("'--retry' must be >= 0, got %d", config.Retry)
	}
	if config.Rate < 0 {
		return fmt.Errorf("'--rate' must be >= 0, got %v", config.Rate)
	}
	if config.LogFile {
		utils.SetLogFile(name, command)
	}
	return nil
}

// Limiter shared by the readers of one run, nil when unlimited
func (config *CommonConfig) limiter() *rate.Limiter {
	if config.Rate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(config.Rate), 1)
}

func (config *CommonConfig) readerOptions(limiter *rate.Limiter) estat.ReaderOptions {
	return estat.ReaderOptions{
		APIKey:          config.APIKey,
		DotenvPath:      config.Dotenv,
		Lang:            estat.Lang(config.Lang),
		BaseURL:         config.BaseURL,
		RetryCount:      config.Retry,
		Pause:           config.Pause,
		PauseMultiplier: config.Backoff,
		Timeout:         config.Timeout,
		Limiter:         limiter,
	}
}

func (config *CommonConfig) openSink(ctx context.Context) (export.Sink, error) {
	return export.Open(ctx, export.Config{Kind: config.Out, DSN: config.DSN, Dir: config.Dir})
}

// Writes every table to the configured output
func (config *CommonConfig) write(ctx context.Context, tables map[string]estat.Result) error {
	sink, err := config.openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	for name, res := range tables {
		if err := sink.Write(ctx, name, res.Frame); err != nil {
			return err
		}
	}
	return nil
}

type rawReader interface {
	ReadJSON(ctx context.Context) (json.RawMessage, estat.Metadata, error)
}

// Writes the untouched response of reader to <dir>/<name>.json
func (config *CommonConfig) writeRaw(ctx context.Context, name string, reader rawReader) error {
	raw, meta, err := reader.ReadJSON(ctx)
	if err != nil {
		return err
	}
	logStatus(meta)

	_, err = export.WriteRaw(config.Dir, name, raw)
	return err
}

// Logs the API status of a response, which is not an error by itself
func logStatus(meta estat.Metadata) {
	if meta.Status == nil {
		return
	}
	if meta.OK() {
		slog.Info("API returned status 0: " + meta.ErrorMsg)
		return
	}
	slog.Warn(fmt.Sprintf("API returned status %d: %s", *meta.Status, meta.ErrorMsg))
}
