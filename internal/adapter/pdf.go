package adapter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

var errNoPDFLink = errors.New("no pdf link found on landing page")

// TextParser turns the plain text of a PDF into records.
type TextParser func(cc domain.CountryContext, lines []string) ([]domain.RawRecord, error)

// PDF downloads a PDF directory. When LinkSelector is set, URL is a landing
// page and the first matching link is followed to the PDF.
type PDF struct {
	Source       domain.SourceDescriptor
	URL          string
	LinkSelector string
	Parse        TextParser
	Fetcher      Fetcher
}

func (p *PDF) Descriptor() domain.SourceDescriptor { return p.Source }

func (p *PDF) Fetch(ctx context.Context, cc domain.CountryContext) ([]domain.RawRecord, error) {
	pdfURL, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := p.Fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		return nil, err
	}

	lines, err := PDFLines(resp.Body)
	if err != nil {
		return nil, err
	}
	return p.Parse(cc, lines)
}

func (p *PDF) resolve(ctx context.Context) (string, error) {
	if p.LinkSelector == "" {
		return p.URL, nil
	}

	landing, err := p.Fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return "", err
	}
	doc, err := landing.Document()
	if err != nil {
		return "", err
	}
	href, ok := doc.Find(p.LinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w: %s", errNoPDFLink, p.URL)
	}
	return landing.Resolve(href)
}

// PDFLines extracts the non-blank text lines of a PDF document.
func PDFLines(body []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return TextLines(text)
}

// TextLines splits r into trimmed, non-blank lines.
func TextLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan text: %w", err)
	}
	return lines, nil
}
