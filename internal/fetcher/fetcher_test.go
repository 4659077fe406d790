package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

const testUserAgent = "medgraph-test/1.0"

// recordingSleeper captures requested sleeps without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) RecordFetch(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func newFetcher(t *testing.T, retries int, opts ...fetcher.Option) (*fetcher.Fetcher, *recordingSleeper) {
	t.Helper()

	sleeper := &recordingSleeper{}
	cfg := config.FetcherConfig{
		UserAgent:    testUserAgent,
		Retries:      retries,
		Backoff:      time.Second,
		Timeout:      2 * time.Second,
		PageDelay:    500 * time.Millisecond,
		MaxBodyBytes: 1024,
	}
	opts = append([]fetcher.Option{fetcher.WithSleeper(sleeper.Sleep)}, opts...)
	return fetcher.New(cfg, logger.NewNop(), opts...), sleeper
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body><h1>ok</h1></body></html>"))
	}))
	defer srv.Close()

	f, sleeper := newFetcher(t, 3)
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testUserAgent, gotUA)
	assert.Empty(t, sleeper.Delays())

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("h1").Text())
}

func TestFetch_ExhaustsAfterRetriesAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	recorder := &countingRecorder{}
	f, sleeper := newFetcher(t, 3, fetcher.WithRecorder(recorder))

	resp, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, fetcher.ErrExhausted)

	var statusErr *fetcher.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)

	assert.Equal(t, int32(3), hits.Load())
	// Sleeps happen between attempts only, doubling each time.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Delays())
	assert.Equal(t, 3, recorder.outcomes[fetcher.OutcomeFailure])
}

func TestFetch_RecoversAfterTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f, sleeper := newFetcher(t, 3)
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(resp.Body))
	assert.Len(t, sleeper.Delays(), 2)
}

func TestFetch_ClientErrorsAreRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, _ := newFetcher(t, 2)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, fetcher.ErrExhausted)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchWith_PolicyOverride(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, sleeper := newFetcher(t, 3)
	_, err := f.FetchWith(context.Background(), srv.URL, fetcher.Policy{
		Retries: 1,
		Backoff: time.Minute,
		Timeout: time.Second,
	})
	require.ErrorIs(t, err, fetcher.ErrExhausted)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f, _ := newFetcher(t, 1)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, fetcher.ErrExhausted)
}

func TestFetch_ContextCancelledStopsRetrying(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := func(_ context.Context, _ time.Duration) error {
		cancel()
		return context.Canceled
	}

	f, _ := newFetcher(t, 5, fetcher.WithSleeper(cancelling))
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, fetcher.ErrExhausted))
	assert.Equal(t, int32(1), hits.Load())
}

func TestResponse_Resolve(t *testing.T) {
	resp := &fetcher.Response{URL: "https://example.org/directory/index.html"}

	abs, err := resp.Resolve("../files/list.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/files/list.pdf", abs)

	abs, err = resp.Resolve("https://cdn.example.org/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/a.pdf", abs)
}
