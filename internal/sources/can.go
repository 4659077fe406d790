package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

const (
	cvmaURL         = "https://www.canadianveterinarians.net/public-resources/careers-in-veterinary-medicine/veterinary-colleges/"
	cacmsURL        = "https://cacms-cafmc.ca/about-cacms/accredited-programs/"
	wikiCanMedURL   = "https://en.wikipedia.org/wiki/List_of_medical_schools_in_Canada"
	odhfURL         = "https://ftp.maps.canada.ca/pub/statcan_statcan/Health-care-facilities_Etablissement-de-sante/ODHF_BDOES/odhf_bdoes_v1.csv"
	researchInfoURL = "https://researchinfosource.com/top-40-research-hospitals/2020/list"
)

func canSources(f adapter.Fetcher, _ int) []adapter.Adapter {
	return []adapter.Adapter{
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "CVMA", Tier: domain.TierProfessionalBody, Priority: 1, URL: cvmaURL},
			URL:     cvmaURL,
			Parse:   parseCVMA,
			Fetcher: f,
		},
		avmaSource(f, "Canada", 2),
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "CACMS", Tier: domain.TierProfessionalBody, Priority: 1, URL: cacmsURL},
			URL:     cacmsURL,
			Parse:   parseCACMS,
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiCanMedURL},
			URL:     wikiCanMedURL,
			Parse:   parseWikiCanadaMed,
			Fetcher: f,
		},
		&adapter.CSV{
			Source:  domain.SourceDescriptor{Name: "ODHF", Tier: domain.TierGovernment, Priority: 1, URL: odhfURL},
			URL:     odhfURL,
			Map:     mapODHF,
			Fetcher: f,
		},
		&adapter.HTML{
			Source: domain.SourceDescriptor{
				Name:     "Research Infosource",
				Tier:     domain.TierCommercial,
				Priority: 3,
				URL:      researchInfoURL,
			},
			URL:     researchInfoURL,
			Parse:   parseResearchHospitals,
			Fetcher: f,
		},
	}
}

func parseCVMA(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	if _, err := requireMatch(doc, "div.entry-content"); err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	for _, item := range adapter.ListItems(doc, "div.entry-content li") {
		if strings.Contains(item.Text, "College") {
			out = append(out, domain.RawRecord{
				Name:    item.Text,
				Website: item.Href,
				Type:    domain.TypeVeterinarySchool,
			})
		}
	}
	return out, nil
}

func parseCACMS(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	items, err := requireMatch(doc, "div.program-item")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	items.Each(func(_ int, item *goquery.Selection) {
		name := adapter.CellText(item.Find("h3").First())
		location := adapter.CellText(item.Find("p").First())
		if name == "" || location == "" {
			return
		}
		rec := domain.RawRecord{Name: name, Type: domain.TypeMedicalSchool}
		if strings.Contains(location, ",") {
			_, rec.State = splitLocation(location)
		}
		out = append(out, rec)
	})
	return out, nil
}

// parseWikiCanadaMed reads rows of province, school, city and founding year.
func parseWikiCanadaMed(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	table, err := requireMatch(doc, "table.wikitable")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	dataRows(table.First(), 4, func(cells []string, _ *goquery.Selection) {
		rec := domain.RawRecord{
			Name:  cells[1],
			State: cells[0],
			City:  cells[2],
			Type:  domain.TypeMedicalSchool,
		}
		if year, ok := adapter.ParseYear(cells[3]); ok {
			rec.SetAttr(domain.AttrEstYear, year)
		}
		out = append(out, rec)
	})
	return out, nil
}

func mapODHF(row adapter.Row) (domain.RawRecord, bool) {
	name := row.Get("facility_name")
	if name == "" {
		return domain.RawRecord{}, false
	}

	facilityType := strings.ToLower(row.Get("odhf_facility_type"))
	typ := domain.TypeOther
	switch {
	case strings.Contains(facilityType, "hospital"):
		typ = domain.TypeHospital
	case strings.Contains(facilityType, "clinic"), strings.Contains(facilityType, "ambulatory"):
		typ = domain.TypeClinic
	}

	address := strings.TrimSpace(row.Get("street_no") + " " + row.Get("street_name"))
	if address == "" {
		address = row.Get("address")
	}

	rec := domain.RawRecord{
		Name:          name,
		Type:          typ,
		State:         row.Get("province"),
		City:          row.Get("city"),
		Address:       address,
		LatitudeText:  row.Get("latitude"),
		LongitudeText: row.Get("longitude"),
	}
	if facilityType != "" {
		rec.SetAttr(domain.AttrSubtype, facilityType)
	}
	return rec, true
}

func parseResearchHospitals(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	table, err := requireMatch(doc, "table")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	dataRows(table.First(), 4, func(cells []string, _ *goquery.Selection) {
		rec := domain.RawRecord{
			Name:  cells[1],
			City:  cells[2],
			State: cells[3],
			Type:  domain.TypeAcademicMedicalCenter,
		}
		rec.SetAttr("rank", cells[0])
		out = append(out, rec)
	})
	return out, nil
}
