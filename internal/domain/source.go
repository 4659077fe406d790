package domain

import "strings"

// Tier is a source's reliability classification.
type Tier string

const (
	TierGovernment       Tier = "government"
	TierProfessionalBody Tier = "professional_body"
	TierAcademic         Tier = "academic"
	TierCommercial       Tier = "commercial"
	TierWiki             Tier = "wiki"
	TierOther            Tier = "other"
)

// SourceDescriptor identifies an adapter. Priority is used for reporting only;
// lower values are listed first.
type SourceDescriptor struct {
	Name     string
	Tier     Tier
	Priority int
	URL      string
}

// CountryContext is passed to every adapter of a run.
type CountryContext struct {
	// Code is the ISO-3166 alpha-3 code in upper case.
	Code string
	Name string
}

// NormalizeCountryCode upper-cases and trims an ISO3 code.
func NormalizeCountryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
