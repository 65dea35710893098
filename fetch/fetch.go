// Package fetch issues the GET requests of the e-Stat readers, retrying
// non-success responses with a growing pause between attempts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	// Number of retries after the first attempt
	RetryCount int
	Pause      time.Duration
	// Factor applied to the pause after every failed attempt, 0 counts as 1
	PauseMultiplier float64
	Timeout         time.Duration
	Headers         map[string]string
	// Optional, waited on before every attempt
	Limiter         *rate.Limiter
	MaxConnsPerHost int
}

// RemoteDataError is returned once all attempts failed.
// It carries the body of the last response, if any.
type RemoteDataError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteDataError) Error() string {
	msg := "Unable to read URL: " + e.URL
	if e.Body != "" {
		msg += "\nResponse Text:\n" + e.Body
	} else if e.Err != nil {
		msg += "\n" + e.Err.Error()
	}
	return msg
}

func (e *RemoteDataError) Unwrap() error {
	return e.Err
}

type Client struct {
	http    *http.Client
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) bool
	maxBody int64
}

func New(opts Options) (*Client, error) {
	if opts.RetryCount < 0 {
		return nil, errors.New("retry count must be >= 0")
	}
	if opts.Pause < 0 {
		return nil, errors.New("pause must be >= 0")
	}
	if opts.Timeout <= 0 {
		return nil, errors.New("timeout must be > 0")
	}
	if opts.MaxConnsPerHost < 0 {
		return nil, errors.New("max conns per host must be >= 0")
	}
	if opts.PauseMultiplier <= 0 {
		opts.PauseMultiplier = 1
	}

	return &Client{
		http:    newHTTPClient(opts.Timeout, opts.MaxConnsPerHost),
		opts:    opts,
		sleep:   sleepContext,
		maxBody: 1 << 30,
	}, nil
}

// Fetch returns the body of the first successful response for rawURL with params.
// Every non-200 response and every transport error counts as a failed attempt.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target := rawURL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	shown := redacted(rawURL, params)
	pause := c.opts.Pause
	last := &RemoteDataError{URL: shown}
	for n := 0; n <= c.opts.RetryCount; n++ {
		if n > 0 {
			slog.Warn(fmt.Sprintf("Attempt %d/%d for %s failed, retrying in %s", n, c.opts.RetryCount+1, rawURL, pause))
			if !c.sleep(ctx, pause) {
				return nil, ctx.Err()
			}
			pause = time.Duration(float64(pause) * c.opts.PauseMultiplier)
		}

		if c.opts.Limiter != nil {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := c.doAttempt(ctx, target)
		if err == nil && res.status == http.StatusOK {
			return res.body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		last = &RemoteDataError{URL: shown, StatusCode: res.status, Body: string(res.body), Err: err}
		if res.status == http.StatusTooManyRequests {
			// Retry-After is honoured when the server asks for longer than the pause
			if d := parseRetryAfter(res.retryAfter); d > pause {
				pause = d
			}
		}
	}
	return nil, last
}

type attempt struct {
	body       []byte
	status     int
	retryAfter string
}

func (c *Client) doAttempt(ctx context.Context, target string) (attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return attempt{}, err
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return attempt{}, err
	}
	defer resp.Body.Close()

	res := attempt{status: resp.StatusCode, retryAfter: resp.Header.Get("Retry-After")}
	res.body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	return res, err
}

// URL for error messages, with the application id masked
func redacted(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	shown := make(url.Values, len(params))
	for k, v := range params {
		shown[k] = v
	}
	if shown.Has("appId") {
		shown.Set("appId", "***")
	}
	return rawURL + "?" + shown.Encode()
}

// Close drops the idle connections of the session
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Retry-After in delta-seconds or as an HTTP date
func parseRetryAfter(ra string) time.Duration {
	ra = strings.TrimSpace(ra)
	if ra == "" {
		return 0
	}

	if secs, err := strconv.Atoi(ra); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func newHTTPClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		MaxConnsPerHost:     maxConnsPerHost,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
