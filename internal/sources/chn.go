package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

const (
	wikiVetURL     = "https://en.wikipedia.org/wiki/List_of_schools_of_veterinary_medicine"
	wikiAsiaMedURL = "https://en.wikipedia.org/wiki/List_of_medical_schools_in_Asia"
	wikiChnHospURL = "https://en.wikipedia.org/wiki/List_of_hospitals_in_China"
	wdomsSearchURL = "https://search.wdoms.org/home/SchoolSearch?Country=China&SchoolType=Medical&ProgramType=Undergraduate"
	wcameURL       = "https://wcame.meduc.cn/en_school.php"
	wdomsPageParam = "Page"
)

func chnSources(f adapter.Fetcher, maxPages int) []adapter.Adapter {
	return []adapter.Adapter{
		avmaSource(f, "China", 2),
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiVetURL},
			URL:     wikiVetURL,
			Parse:   wikiSectionList("China", domain.TypeVeterinarySchool),
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiAsiaMedURL},
			URL:     wikiAsiaMedURL,
			Parse:   parseWikiChinaMed,
			Fetcher: f,
		},
		&adapter.PaginatedHTML{
			Source:    domain.SourceDescriptor{Name: "WDOMS", Tier: domain.TierAcademic, Priority: 1, URL: wdomsSearchURL},
			BaseURL:   wdomsSearchURL,
			PageParam: wdomsPageParam,
			StartPage: 1,
			MaxPages:  maxPages,
			Parse:     parseWDOMSPage,
			Fetcher:   f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "WCAME", Tier: domain.TierProfessionalBody, Priority: 1, URL: wcameURL},
			URL:     wcameURL,
			Parse:   parseWCAME,
			Fetcher: f,
		},
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "Wikipedia", Tier: domain.TierWiki, Priority: 3, URL: wikiChnHospURL},
			URL:     wikiChnHospURL,
			Parse:   parseWikiChinaHospitals,
			Fetcher: f,
		},
	}
}

// wikiSectionList reads the bulleted list under a country heading of a
// worldwide Wikipedia list.
func wikiSectionList(anchor string, typ domain.InstitutionType) adapter.DocumentParser {
	return func(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
		list := sectionList(doc, anchor)
		if list.Length() == 0 {
			return nil, errMissingListing
		}

		var out []domain.RawRecord
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			text := adapter.CellText(li)
			if text == "" {
				return
			}
			name, local := splitLocalName(text)
			rec := domain.RawRecord{Name: name, Type: typ}
			if local != "" {
				rec.SetAttr(domain.AttrLocalName, local)
			}
			out = append(out, rec)
		})
		return out, nil
	}
}

// parseWikiChinaMed reads every wikitable of province, school, city and an
// optional founding year.
func parseWikiChinaMed(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	tables, err := requireMatch(doc, "table.wikitable")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	tables.Each(func(_ int, table *goquery.Selection) {
		dataRows(table, 3, func(cells []string, _ *goquery.Selection) {
			name, local := splitLocalName(cells[1])
			rec := domain.RawRecord{
				Name:  name,
				State: cells[0],
				City:  cells[2],
				Type:  domain.TypeMedicalSchool,
			}
			if local != "" {
				rec.SetAttr(domain.AttrLocalName, local)
			}
			if len(cells) > 3 {
				if year, ok := adapter.ParseYear(cells[3]); ok {
					rec.SetAttr(domain.AttrEstYear, year)
				}
			}
			out = append(out, rec)
		})
	})
	return out, nil
}

// parseWDOMSPage reads one page of search results. An empty page ends the
// pagination.
func parseWDOMSPage(_ domain.CountryContext, doc *goquery.Document) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	doc.Find("div.school-item").Each(func(_ int, item *goquery.Selection) {
		name := adapter.CellText(item.Find("h3").First())
		location := adapter.CellText(item.Find("p.location").First())
		if name == "" || location == "" {
			return
		}
		rec := domain.RawRecord{Name: name, Type: domain.TypeMedicalSchool}
		if parts := strings.Split(location, ","); len(parts) > 1 {
			rec.City = strings.TrimSpace(parts[0])
			rec.State = strings.TrimSpace(parts[1])
		}
		out = append(out, rec)
	})
	return out, nil
}

func parseWCAME(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	table, err := requireMatch(doc, "table")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	dataRows(table.First(), 4, func(cells []string, _ *goquery.Selection) {
		rec := domain.RawRecord{
			Name:  cells[0],
			State: cells[1],
			Type:  domain.TypeMedicalSchool,
		}
		rec.SetAttr("program", cells[2])
		rec.SetAttr("status", cells[3])
		out = append(out, rec)
	})
	return out, nil
}

// parseWikiChinaHospitals walks province headings and the hospital list
// items beneath them.
func parseWikiChinaHospitals(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	province := ""
	doc.Find("h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := adapter.CellText(s)
		if goquery.NodeName(s) != "li" {
			if strings.Contains(text, "Province") {
				province = strings.TrimSpace(strings.ReplaceAll(text, "[edit]", ""))
			}
			return
		}
		if province == "" || !containsAny(strings.ToLower(text), "hospital", "medical") {
			return
		}
		name, local := splitLocalName(text)
		if name == "" {
			return
		}
		rec := domain.RawRecord{Name: name, State: province, Type: domain.TypeHospital}
		if local != "" {
			rec.SetAttr(domain.AttrLocalName, local)
		}
		out = append(out, rec)
	})
	return out, nil
}
