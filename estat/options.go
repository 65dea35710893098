package estat

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"estat_reader/credentials"
	"estat_reader/fetch"
)

// Fetcher issues one GET request and returns the raw JSON body.
// Close releases the underlying HTTP session.
type Fetcher interface {
	Fetch(ctx context.Context, url string, params url.Values) ([]byte, error)
	Close()
}

// ConfigError is returned by the reader constructors for invalid options
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %s", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Transport and credential settings shared by all readers
type ReaderOptions struct {
	// Falls back to the environment and the dotenv file when empty
	APIKey     string
	DotenvPath string

	Lang    Lang
	BaseURL string

	RetryCount      int
	Pause           time.Duration
	PauseMultiplier float64
	Timeout         time.Duration
	// Optional, can be shared between readers running in parallel
	Limiter *rate.Limiter

	// Replaces the HTTP client, mostly used in tests
	Fetcher Fetcher
}

func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		Lang:            LangJapanese,
		RetryCount:      3,
		Pause:           100 * time.Millisecond,
		PauseMultiplier: 1,
		Timeout:         30 * time.Second,
	}
}

// Validates the options, resolves the API key and creates the fetcher if none was given
func (o *ReaderOptions) setup() error {
	if o.RetryCount < 0 {
		return &ConfigError{Field: "RetryCount", Msg: "must be an integer >= 0"}
	}
	if o.Pause < 0 {
		return &ConfigError{Field: "Pause", Msg: "must be a positive duration"}
	}
	if o.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Msg: "must be a positive duration"}
	}

	switch o.Lang {
	case "":
		o.Lang = LangJapanese
	case LangJapanese, LangEnglish:
	default:
		return &ConfigError{Field: "Lang", Msg: fmt.Sprintf("'%s' is not one of 'J' or 'E'", o.Lang)}
	}

	key, err := credentials.Resolve(o.APIKey, o.DotenvPath)
	if err != nil {
		return &ConfigError{Field: "APIKey", Msg: "no e-Stat application id available", Err: err}
	}
	o.APIKey = key

	if o.Fetcher == nil {
		client, err := fetch.New(fetch.Options{
			RetryCount:      o.RetryCount,
			Pause:           o.Pause,
			PauseMultiplier: o.PauseMultiplier,
			Timeout:         o.Timeout,
			Limiter:         o.Limiter,
		})
		if err != nil {
			return &ConfigError{Field: "Fetcher", Msg: "could not create HTTP client", Err: err}
		}
		o.Fetcher = client
	}
	return nil
}

// Column names are localized unless English labels were requested
func (o ReaderOptions) localized() bool {
	return o.Lang != LangEnglish
}
