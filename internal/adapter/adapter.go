// Package adapter defines source adapters and the generic adapter kinds
// (HTML, paginated HTML, CSV, XLSX, JSON, PDF, static) that per-country
// source definitions are built from.
package adapter

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// Adapter yields raw candidate records from one upstream source for one
// country.
type Adapter interface {
	Descriptor() domain.SourceDescriptor
	Fetch(ctx context.Context, cc domain.CountryContext) ([]domain.RawRecord, error)
}

// Fetcher is the subset of *fetcher.Fetcher adapters use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
	FetchPaginated(
		ctx context.Context,
		baseURL, pageParam string,
		startPage, maxPages int,
		parse fetcher.PageParser,
	) ([]domain.RawRecord, error)
}

// Result is the outcome of one adapter invocation.
type Result struct {
	Source   domain.SourceDescriptor
	Records  []domain.RawRecord
	Duration time.Duration
	// Err is set when the adapter failed; Records is then empty.
	Err error
}

// Failed reports whether the adapter contributed nothing because of an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Collect runs a and converts any error or panic into an empty, logged
// result. Successful records are stamped with the source, tier and country.
func Collect(ctx context.Context, a Adapter, cc domain.CountryContext, log logger.Logger) (res Result) {
	desc := a.Descriptor()
	res.Source = desc
	start := time.Now()
	log = log.With(logger.String("source", desc.Name))

	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Records = nil
			res.Err = fmt.Errorf("adapter %s panicked: %v", desc.Name, r)
			log.Error("Adapter panicked",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
	}()

	records, err := a.Fetch(ctx, cc)
	if err != nil {
		res.Err = fmt.Errorf("adapter %s: %w", desc.Name, err)
		log.Error("Adapter failed", logger.Error(err))
		return res
	}

	for i := range records {
		stamp(&records[i], desc, cc)
	}
	res.Records = records

	log.Info("Adapter finished", logger.Int("records", len(records)))
	return res
}

func stamp(rec *domain.RawRecord, desc domain.SourceDescriptor, cc domain.CountryContext) {
	if rec.Attributes.Source() == "" {
		rec.SetAttr(domain.AttrSource, desc.Name)
	}
	if _, ok := rec.Attributes[domain.AttrTier]; !ok {
		rec.SetAttr(domain.AttrTier, string(desc.Tier))
	}
	if rec.Country == "" {
		rec.Country = cc.Code
	}
}
