package adapter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

func TestTextLines(t *testing.T) {
	lines, err := adapter.TextLines(strings.NewReader("  Alpha \n\n\tBeta\n   \nGamma"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, lines)
}

func TestPDFLines_RejectsNonPDF(t *testing.T) {
	_, err := adapter.PDFLines([]byte("<html>not a pdf</html>"))
	assert.Error(t, err)
}

func TestPDF_FollowsLandingPageLink(t *testing.T) {
	const landing = "https://www.avma.org/education/accreditation/colleges"
	stub := newStubFetcher(map[string]string{
		landing: `<html><body><a class="doc" href="/sites/default/files/colleges.pdf">Download</a></body></html>`,
		"https://www.avma.org/sites/default/files/colleges.pdf": "not really a pdf",
	})

	p := &adapter.PDF{
		Source:       domain.SourceDescriptor{Name: "AVMA"},
		URL:          landing,
		LinkSelector: "a.doc",
		Parse: func(domain.CountryContext, []string) ([]domain.RawRecord, error) {
			t.Fatal("parser must not run for an unreadable pdf")
			return nil, nil
		},
		Fetcher: stub,
	}

	_, err := p.Fetch(context.Background(), canada)
	require.Error(t, err)
	assert.Equal(t, []string{landing, "https://www.avma.org/sites/default/files/colleges.pdf"}, stub.calls)
}

func TestPDF_NoLinkOnLandingPage(t *testing.T) {
	const landing = "https://www.aacom.org/colleges"
	p := &adapter.PDF{
		Source:       domain.SourceDescriptor{Name: "AACOM"},
		URL:          landing,
		LinkSelector: "a[href$='.pdf']",
		Fetcher:      newStubFetcher(map[string]string{landing: `<p>moved</p>`}),
	}
	_, err := p.Fetch(context.Background(), domain.CountryContext{Code: "USA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pdf link")
}
