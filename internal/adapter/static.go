package adapter

import (
	"context"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// Static serves a fixed, curated list. Used where no machine-readable
// directory exists.
type Static struct {
	Source  domain.SourceDescriptor
	Records []domain.RawRecord
}

func (s *Static) Descriptor() domain.SourceDescriptor { return s.Source }

// Fetch returns a copy of the list so callers may mutate it.
func (s *Static) Fetch(_ context.Context, _ domain.CountryContext) ([]domain.RawRecord, error) {
	out := make([]domain.RawRecord, len(s.Records))
	for i, rec := range s.Records {
		rec.Attributes = rec.Attributes.Clone()
		out[i] = rec
	}
	return out, nil
}
