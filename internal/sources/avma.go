package sources

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

const avmaURL = "https://www.avma.org/education/center-for-veterinary-accreditation/accredited-veterinary-colleges"

// avmaColumnGap separates the columns of the printable list once it is
// flattened to text.
var avmaColumnGap = regexp.MustCompile(`\t+|\s{2,}`)

// avmaSource builds the AVMA accredited-colleges adapter for one country.
// The PDF lists every country; rows are kept when their first column
// contains countryFilter.
func avmaSource(f adapter.Fetcher, countryFilter string, priority int) *adapter.PDF {
	return &adapter.PDF{
		Source: domain.SourceDescriptor{
			Name:     "AVMA",
			Tier:     domain.TierProfessionalBody,
			Priority: priority,
			URL:      avmaURL,
		},
		URL:          avmaURL,
		LinkSelector: "a:contains('Download printable list')",
		Parse: func(_ domain.CountryContext, lines []string) ([]domain.RawRecord, error) {
			return parseAVMA(lines, countryFilter), nil
		},
		Fetcher: f,
	}
}

func parseAVMA(lines []string, countryFilter string) []domain.RawRecord {
	var out []domain.RawRecord
	for _, line := range lines {
		cols := avmaColumnGap.Split(strings.TrimSpace(line), -1)
		if len(cols) < 2 || !strings.Contains(cols[0], countryFilter) {
			continue
		}

		rec := domain.RawRecord{
			Name: cols[1],
			Type: domain.TypeVeterinarySchool,
		}
		if len(cols) > 2 {
			rec.Address = cols[2]
			parts := strings.Split(rec.Address, ",")
			if len(parts) > 1 {
				rec.City = strings.TrimSpace(parts[len(parts)-2])
				rec.State = strings.TrimSpace(parts[len(parts)-1])
			}
		}
		if len(cols) > 3 {
			rec.SetAttr("accreditation", cols[3])
		}
		out = append(out, rec)
	}
	return out
}
