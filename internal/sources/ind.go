package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

const (
	nmcURL         = "https://www.nmc.org.in/information-desk/college-and-course-search/"
	vciURL         = "https://vci.nic.in/vets_college.htm"
	wikiIndHospURL = "https://en.wikipedia.org/wiki/List_of_hospitals_in_India"
	wikiIndMedURL  = "https://en.wikipedia.org/wiki/List_of_medical_colleges_in_India"
)

// vciStateWords identify state headings on the VCI college page.
var vciStateWords = []string{"Pradesh", "State", "Karnataka", "Maharashtra", "Gujarat", "Punjab", "Haryana"}

// indHospitalRegionWords identify region headings on the hospitals list.
var indHospitalRegionWords = []string{"Pradesh", "State", "Territory", "Delhi", "Mumbai", "Bangalore", "Chennai"}

// aiims lists the All India Institutes of Medical Sciences.
var aiims = []struct{ name, city, state string }{
	{"All India Institute of Medical Sciences, New Delhi", "New Delhi", "Delhi"},
	{"AIIMS Bhopal", "Bhopal", "Madhya Pradesh"},
	{"AIIMS Bhubaneswar", "Bhubaneswar", "Odisha"},
	{"AIIMS Jodhpur", "Jodhpur", "Rajasthan"},
	{"AIIMS Patna", "Patna", "Bihar"},
	{"AIIMS Raipur", "Raipur", "Chhattisgarh"},
	{"AIIMS Rishikesh", "Rishikesh", "Uttarakhand"},
	{"AIIMS Nagpur", "Nagpur", "Maharashtra"},
	{"AIIMS Mangalagiri", "Mangalagiri", "Andhra Pradesh"},
	{"AIIMS Bathinda", "Bathinda", "Punjab"},
	{"AIIMS Deoghar", "Deoghar", "Jharkhand"},
	{"AIIMS Gorakhpur", "Gorakhpur", "Uttar Pradesh"},
	{"AIIMS Jammu", "Jammu", "Jammu and Kashmir"},
	{"AIIMS Kalyani", "Kalyani", "West Bengal"},
	{"AIIMS Raebareli", "Raebareli", "Uttar Pradesh"},
	{"AIIMS Bilaspur", "Bilaspur", "Himachal Pradesh"},
	{"AIIMS Madurai", "Madurai", "Tamil Nadu"},
	{"AIIMS Bibinagar", "Bibinagar", "Telangana"},
	{"AIIMS Vijaypur", "Vijaypur", "Jammu and Kashmir"},
	{"AIIMS Darbhanga", "Darbhanga", "Bihar"},
	{"AIIMS Rajkot", "Rajkot", "Gujarat"},
	{"AIIMS Guwahati", "Guwahati", "Assam"},
}

func indSources(f adapter.Fetcher, _ int) []adapter.Adapter {
	return []adapter.Adapter{
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "NMC", Tier: domain.TierGovernment, Priority: 1, URL: nmcURL},
			URL:     nmcURL,
			Parse:   parseNMC,
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "VCI", Tier: domain.TierGovernment, Priority: 1, URL: vciURL},
			URL:     vciURL,
			Parse:   parseVCI,
			Fetcher: f,
		},
		aiimsSource(),
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiIndHospURL},
			URL:     wikiIndHospURL,
			Parse:   parseWikiIndiaHospitals,
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiIndMedURL},
			URL:     wikiIndMedURL,
			Parse:   parseWikiIndiaMed,
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiVetURL},
			URL:     wikiVetURL,
			Parse:   wikiSectionList("India", domain.TypeVeterinarySchool),
			Fetcher: f,
		},
	}
}

func aiimsSource() *adapter.Static {
	records := make([]domain.RawRecord, 0, len(aiims))
	for _, a := range aiims {
		rec := domain.RawRecord{
			Name:  a.name,
			City:  a.city,
			State: a.state,
			Type:  domain.TypeAcademicMedicalCenter,
		}
		rec.SetAttr(domain.AttrSubtype, "AIIMS")
		records = append(records, rec)
	}
	return &adapter.Static{
		Source:  domain.SourceDescriptor{Name: "Government Records", Tier: domain.TierGovernment, Priority: 1},
		Records: records,
	}
}

// parseNMC reads the college tables of the NMC search page: name, state
// and course.
func parseNMC(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	tables, err := requireMatch(doc, "table")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	tables.Each(func(_ int, table *goquery.Selection) {
		dataRows(table, 3, func(cells []string, _ *goquery.Selection) {
			if !strings.Contains(strings.ToLower(cells[0]), "college") {
				return
			}
			rec := domain.RawRecord{
				Name:  cells[0],
				State: cells[1],
				Type:  domain.TypeMedicalSchool,
			}
			rec.SetAttr("course", cells[2])
			out = append(out, rec)
		})
	})
	return out, nil
}

func parseVCI(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	state := ""
	doc.Find("h3, h4, li, p").Each(func(_ int, s *goquery.Selection) {
		text := adapter.CellText(s)
		lower := strings.ToLower(text)
		switch {
		case containsAny(text, vciStateWords...) && !strings.Contains(lower, "college"):
			state = text
		case strings.Contains(lower, "college") && strings.Contains(lower, "veterinary"):
			out = append(out, domain.RawRecord{Name: text, State: state, Type: domain.TypeVeterinarySchool})
		}
	})
	return out, nil
}

func parseWikiIndiaHospitals(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	region := ""
	doc.Find("h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := adapter.CellText(s)
		if goquery.NodeName(s) != "li" {
			if containsAny(text, indHospitalRegionWords...) {
				region = strings.TrimSpace(strings.ReplaceAll(text, "[edit]", ""))
			}
			return
		}
		if region == "" || text == "" || !containsAny(strings.ToLower(text), "hospital", "medical") {
			return
		}
		out = append(out, domain.RawRecord{Name: text, State: region, Type: domain.TypeHospital})
	})
	return out, nil
}

// parseWikiIndiaMed reads wikitables whose rows start with the college name
// and its "City, State" location.
func parseWikiIndiaMed(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	tables, err := requireMatch(doc, "table.wikitable")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.ChildrenFiltered("td, th")
			if cells.Length() < 2 {
				return
			}
			name := adapter.CellText(cells.Eq(0))
			if !strings.Contains(strings.ToLower(name), "college") {
				return
			}
			city, state := splitLocation(adapter.CellText(cells.Eq(1)))
			rec := domain.RawRecord{
				Name:  name,
				City:  city,
				State: state,
				Type:  domain.TypeMedicalSchool,
			}
			if cells.Length() > 2 {
				if year, ok := adapter.ParseYear(adapter.CellText(cells.Eq(2))); ok {
					rec.SetAttr(domain.AttrEstYear, year)
				}
			}
			out = append(out, rec)
		})
	})
	return out, nil
}
