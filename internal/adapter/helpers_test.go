package adapter_test

import (
	"context"
	"errors"
	"sync"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

var errNotFound = errors.New("not found")

// stubFetcher serves canned bodies keyed by URL.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []string
}

func newStubFetcher(bodies map[string]string) *stubFetcher {
	return &stubFetcher{bodies: bodies}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*fetcher.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)

	body, ok := s.bodies[url]
	if !ok {
		return nil, errors.Join(fetcher.ErrExhausted, errNotFound)
	}
	return &fetcher.Response{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

func (s *stubFetcher) FetchPaginated(
	_ context.Context, _, _ string, _, _ int, _ fetcher.PageParser,
) ([]domain.RawRecord, error) {
	return nil, errors.New("not supported by stub")
}

var canada = domain.CountryContext{Code: "CAN", Name: "Canada"}
