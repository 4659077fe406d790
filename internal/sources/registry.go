// Package sources defines the upstream directories ingested for each
// supported country.
package sources

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// ErrUnknownCountry is returned for a country code with no registered sources.
var ErrUnknownCountry = errors.New("unknown country")

// defaultMaxPages bounds paginated searches when no limit is configured.
const defaultMaxPages = 20

type builder func(f adapter.Fetcher, maxPages int) []adapter.Adapter

var countries = map[string]struct {
	name  string
	build builder
}{
	"USA": {"United States", usaSources},
	"CAN": {"Canada", canSources},
	"CHN": {"China", chnSources},
	"IND": {"India", indSources},
}

type entry struct {
	country  domain.CountryContext
	adapters []adapter.Adapter
}

// Registry maps ISO3 country codes to their ordered adapters.
type Registry struct {
	entries map[string]entry
}

// NewRegistry builds every country's adapters around f. maxPages limits
// paginated sources; zero selects the default.
func NewRegistry(f adapter.Fetcher, maxPages int) *Registry {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	r := &Registry{entries: make(map[string]entry, len(countries))}
	for code, c := range countries {
		r.entries[code] = entry{
			country:  domain.CountryContext{Code: code, Name: c.name},
			adapters: c.build(f, maxPages),
		}
	}
	return r
}

// Lookup returns the country context and adapters for code.
func (r *Registry) Lookup(code string) (domain.CountryContext, []adapter.Adapter, error) {
	code = domain.NormalizeCountryCode(code)
	e, ok := r.entries[code]
	if !ok {
		return domain.CountryContext{}, nil, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}
	return e.country, e.adapters, nil
}

// Countries returns the supported countries ordered by code.
func (r *Registry) Countries() []domain.CountryContext {
	out := make([]domain.CountryContext, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.country)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Sources lists the descriptors registered for code in run order.
func (r *Registry) Sources(code string) ([]domain.SourceDescriptor, error) {
	_, adapters, err := r.Lookup(code)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SourceDescriptor, len(adapters))
	for i, a := range adapters {
		out[i] = a.Descriptor()
	}
	return out, nil
}
