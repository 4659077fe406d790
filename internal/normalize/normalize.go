// Package normalize cleans and canonicalizes raw records per country.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// Normalizer applies country-specific cleanup. It holds only immutable lookup
// tables and is safe for concurrent use.
type Normalizer struct {
	states map[string]map[string]string
}

// New creates a Normalizer with the built-in state tables.
func New() *Normalizer {
	return &Normalizer{
		states: stateTables(),
	}
}

// Normalize returns cleaned copies of records for country. The input slice is
// not modified. Records with an empty name are kept; the repository rejects
// them.
func (n *Normalizer) Normalize(country string, records []domain.RawRecord) []domain.RawRecord {
	country = domain.NormalizeCountryCode(country)
	out := make([]domain.RawRecord, len(records))
	for i, rec := range records {
		out[i] = n.record(country, rec)
	}
	return out
}

func (n *Normalizer) record(country string, rec domain.RawRecord) domain.RawRecord {
	rec.Attributes = rec.Attributes.Clone()

	rec.Name = CleanText(rec.Name)
	rec.City = CleanText(rec.City)
	rec.Address = CleanText(rec.Address)
	rec.Website = strings.TrimSpace(rec.Website)
	rec.State = n.State(country, rec.State)
	rec.Country = country

	if !rec.Type.Valid() {
		rec.Type = domain.ParseInstitutionType(string(rec.Type))
	}

	if local := rec.Attributes.Get(domain.AttrLocalName); local != "" {
		rec.Attributes[domain.AttrLocalName] = CleanText(local)
	}

	rec.Latitude = coordinate(rec.Latitude, rec.LatitudeText, domain.MaxLatitude)
	rec.Longitude = coordinate(rec.Longitude, rec.LongitudeText, domain.MaxLongitude)
	rec.LatitudeText, rec.LongitudeText = "", ""

	return rec
}

// State canonicalizes a state or province name for country. Unknown values
// are cleaned and, when written in a single case, title-cased.
func (n *Normalizer) State(country, state string) string {
	state = CleanText(state)
	if state == "" {
		return ""
	}

	if table, ok := n.states[country]; ok {
		if canonical, found := table[stateKey(state)]; found {
			return canonical
		}
	}

	// Casers are stateful, so one is built per call.
	if (state == strings.ToUpper(state) && len(state) > 3) || state == strings.ToLower(state) {
		return cases.Title(language.English).String(state)
	}
	return state
}

func stateKey(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.TrimSuffix(k, ".")
	for _, suffix := range []string{" province", " municipality", " autonomous region", " sar"} {
		k = strings.TrimSuffix(k, suffix)
	}
	return strings.TrimSpace(k)
}

// coordinate prefers an already numeric value and otherwise parses text.
// Values outside [-limit, limit], NaN and infinities become nil.
func coordinate(value *float64, text string, limit float64) *float64 {
	var v float64
	switch {
	case value != nil:
		v = *value
	case strings.TrimSpace(text) != "":
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "°")), 64)
		if err != nil {
			return nil
		}
		v = parsed
	default:
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return nil
	}
	return &v
}
