package adapter

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

// DocumentParser extracts records from a parsed HTML page.
type DocumentParser func(cc domain.CountryContext, doc *goquery.Document, resp *fetcher.Response) ([]domain.RawRecord, error)

// HTML fetches a single page and hands it to Parse.
type HTML struct {
	Source  domain.SourceDescriptor
	URL     string
	Parse   DocumentParser
	Fetcher Fetcher
}

func (h *HTML) Descriptor() domain.SourceDescriptor { return h.Source }

func (h *HTML) Fetch(ctx context.Context, cc domain.CountryContext) ([]domain.RawRecord, error) {
	resp, err := h.Fetcher.Fetch(ctx, h.URL)
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	records, err := h.Parse(cc, doc, resp)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", h.URL, err)
	}
	return records, nil
}

// PaginatedHTML walks a paged search result listing.
type PaginatedHTML struct {
	Source    domain.SourceDescriptor
	BaseURL   string
	PageParam string
	StartPage int
	MaxPages  int
	Parse     func(cc domain.CountryContext, doc *goquery.Document) ([]domain.RawRecord, error)
	Fetcher   Fetcher
}

func (p *PaginatedHTML) Descriptor() domain.SourceDescriptor { return p.Source }

func (p *PaginatedHTML) Fetch(ctx context.Context, cc domain.CountryContext) ([]domain.RawRecord, error) {
	start := p.StartPage
	if start == 0 {
		start = 1
	}
	return p.Fetcher.FetchPaginated(ctx, p.BaseURL, p.PageParam, start, p.MaxPages,
		func(_ int, resp *fetcher.Response) ([]domain.RawRecord, error) {
			doc, err := resp.Document()
			if err != nil {
				return nil, err
			}
			return p.Parse(cc, doc)
		})
}
