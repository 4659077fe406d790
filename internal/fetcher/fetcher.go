// Package fetcher retrieves upstream documents over HTTP with bounded retries
// and exponential backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// ErrExhausted is returned once every attempt for a URL has failed. Callers
// treat it as "no data".
var ErrExhausted = errors.New("fetch attempts exhausted")

// errBodyTooLarge is returned when a response exceeds the configured limit.
var errBodyTooLarge = errors.New("response body exceeds limit")

// Outcome labels passed to the Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Policy controls one logical fetch.
type Policy struct {
	// Retries is the total number of attempts.
	Retries int
	// Backoff is the sleep after the first failure; it doubles after each
	// further failure. No sleep follows the final attempt.
	Backoff time.Duration
	Timeout time.Duration
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Recorder receives per-attempt observations.
type Recorder interface {
	RecordFetch(outcome string, elapsed time.Duration)
}

// Fetcher performs HTTP GETs on behalf of source adapters.
type Fetcher struct {
	client       *http.Client
	log          logger.Logger
	userAgent    string
	policy       Policy
	pageDelay    time.Duration
	maxBodyBytes int64
	sleep        SleepFunc
	recorder     Recorder
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithSleeper replaces the context-aware sleep used for backoff and page delays.
func WithSleeper(s SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// New creates a Fetcher from the fetcher configuration section.
func New(cfg config.FetcherConfig, log logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		log:       log.With(logger.Component("fetcher")),
		userAgent: cfg.UserAgent,
		policy: Policy{
			Retries: cfg.Retries,
			Backoff: cfg.Backoff,
			Timeout: cfg.Timeout,
		},
		pageDelay:    cfg.PageDelay,
		maxBodyBytes: cfg.MaxBodyBytes,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultPolicy returns the policy built from configuration.
func (f *Fetcher) DefaultPolicy() Policy {
	return f.policy
}

// Fetch retrieves url using the default policy.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	return f.FetchWith(ctx, url, f.policy)
}

// FetchWith retrieves url, retrying network errors and non-2xx responses up
// to p.Retries total attempts.
func (f *Fetcher) FetchWith(ctx context.Context, url string, p Policy) (*Response, error) {
	if p.Retries < 1 {
		p.Retries = 1
	}
	backoff := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= p.Retries; attempt++ {
		start := time.Now()
		resp, err := f.do(ctx, url, p.Timeout)
		if err == nil {
			f.record(OutcomeSuccess, time.Since(start))
			return resp, nil
		}
		f.record(OutcomeFailure, time.Since(start))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		f.log.Warn("Fetch attempt failed",
			logger.String("url", url),
			logger.Int("attempt", attempt),
			logger.Int("retries", p.Retries),
			logger.Duration("backoff", backoff),
			logger.Error(err),
		)

		if attempt == p.Retries {
			break
		}
		if sleepErr := f.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff *= 2
	}

	f.log.Error("Giving up on URL",
		logger.String("url", url),
		logger.Int("attempts", p.Retries),
		logger.Error(lastErr),
	)
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrExhausted, url, p.Retries, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	httpResp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 1<<16))
		return nil, &StatusError{URL: url, Code: httpResp.StatusCode}
	}

	body, err := f.readBody(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		URL:        httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodyBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func (f *Fetcher) record(outcome string, elapsed time.Duration) {
	if f.recorder != nil {
		f.recorder.RecordFetch(outcome, elapsed)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
