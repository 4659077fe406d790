package sources

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
)

const (
	nifaURL        = "https://www.nifa.usda.gov/grants/programs/veterinary-medicine-loan-repayment-program/us-avma-accredited-veterinary-schools"
	lcmeURL        = "https://lcme.org/directory/accredited-u-s-programs/"
	aacomURL       = "https://www.aacom.org/docs/default-source/become-doctor/us-com-directory.pdf"
	cmsHospitalURL = "https://data.cms.gov/provider-data/api/1/datastore/query/xubh-q36u/0"
	cmsTeachingURL = "https://www.cms.gov/files/document/2025-reporting-cycle-teaching-hospital-list.xlsx"
	hrsaURL        = "https://data.hrsa.gov/api/views/29i4-dfs4/rows.csv?accessType=DOWNLOAD"
)

// aacomLine matches "Name, City ST https://site".
var aacomLine = regexp.MustCompile(`^([A-Z].+?) ([A-Z]{2}) (https?://\S+)`)

func usaSources(f adapter.Fetcher, _ int) []adapter.Adapter {
	return []adapter.Adapter{
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "NIFA", Tier: domain.TierGovernment, Priority: 1, URL: nifaURL},
			URL:     nifaURL,
			Parse:   parseNIFA,
			Fetcher: f,
		},
		avmaSource(f, "United States", 2),
		&adapter.HTML{
			Source:  domain.SourceDescriptor{Name: "LCME", Tier: domain.TierProfessionalBody, Priority: 1, URL: lcmeURL},
			URL:     lcmeURL,
			Parse:   parseLCME,
			Fetcher: f,
		},
		&adapter.PDF{
			Source:  domain.SourceDescriptor{Name: "AACOM", Tier: domain.TierProfessionalBody, Priority: 1, URL: aacomURL},
			URL:     aacomURL,
			Parse:   parseAACOM,
			Fetcher: f,
		},
		&adapter.JSON[cmsHospital]{
			Source:  domain.SourceDescriptor{Name: "CMS", Tier: domain.TierGovernment, Priority: 1, URL: cmsHospitalURL},
			URL:     cmsHospitalURL,
			Key:     "results",
			Map:     cmsHospital.record,
			Fetcher: f,
		},
		&adapter.XLSX{
			Source:  domain.SourceDescriptor{Name: "CMS Teaching", Tier: domain.TierGovernment, Priority: 1, URL: cmsTeachingURL},
			URL:     cmsTeachingURL,
			Map:     mapCMSTeaching,
			Fetcher: f,
		},
		&adapter.CSV{
			Source:  domain.SourceDescriptor{Name: "HRSA", Tier: domain.TierGovernment, Priority: 2, URL: hrsaURL},
			URL:     hrsaURL,
			Map:     mapHRSA,
			Fetcher: f,
		},
	}
}

// parseNIFA reads a table where single-cell bold rows name the state of the
// schools listed below them.
func parseNIFA(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	table, err := requireMatch(doc, "table")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	state := ""
	table.First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 1 && cells.Find("strong").Length() > 0 {
			state = adapter.CellText(cells)
			return
		}
		if cells.Length() == 0 || state == "" {
			return
		}
		name := adapter.CellText(cells.First())
		if containsAny(strings.ToLower(name), "university", "college") {
			out = append(out, domain.RawRecord{Name: name, State: state, Type: domain.TypeVeterinarySchool})
		}
	})
	return out, nil
}

func parseLCME(_ domain.CountryContext, doc *goquery.Document, _ *fetcher.Response) ([]domain.RawRecord, error) {
	table, err := requireMatch(doc, "table")
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	dataRows(table.First(), 4, func(cells []string, _ *goquery.Selection) {
		city, state := splitLocation(cells[1])
		rec := domain.RawRecord{
			Name:  cells[0],
			City:  city,
			State: state,
			Type:  domain.TypeMedicalSchool,
		}
		rec.SetAttr("sponsorship", cells[2])
		rec.SetAttr("status", cells[3])
		rec.SetAttr("degree", "MD")
		out = append(out, rec)
	})
	return out, nil
}

func parseAACOM(_ domain.CountryContext, lines []string) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	for _, line := range lines {
		m := aacomLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		rec := domain.RawRecord{
			Name:    strings.TrimSpace(m[1]),
			State:   m[2],
			Website: m[3],
			Type:    domain.TypeMedicalSchool,
		}
		if parts := strings.Split(rec.Name, ","); len(parts) > 1 {
			rec.Name = strings.TrimSpace(parts[0])
			rec.City = strings.TrimSpace(parts[len(parts)-1])
		}
		rec.SetAttr("degree", "DO")
		out = append(out, rec)
	}
	return out, nil
}

// cmsHospital is one row of the CMS Hospital General Information dataset.
type cmsHospital struct {
	FacilityName string `json:"facility_name"`
	Address      string `json:"address"`
	City         string `json:"citytown"`
	CityLegacy   string `json:"city"`
	State        string `json:"state"`
	HospitalType string `json:"hospital_type"`
	Rating       string `json:"hospital_overall_rating"`
}

func (h cmsHospital) record() (domain.RawRecord, bool) {
	if strings.TrimSpace(h.FacilityName) == "" {
		return domain.RawRecord{}, false
	}
	city := h.City
	if city == "" {
		city = h.CityLegacy
	}
	rec := domain.RawRecord{
		Name:    h.FacilityName,
		Type:    domain.TypeHospital,
		State:   h.State,
		City:    city,
		Address: h.Address,
	}
	if h.HospitalType != "" {
		rec.SetAttr(domain.AttrSubtype, h.HospitalType)
	}
	if h.Rating != "" && h.Rating != "Not Available" {
		rec.SetAttr(domain.AttrRating, h.Rating)
	}
	return rec, true
}

func mapCMSTeaching(row adapter.Row) (domain.RawRecord, bool) {
	name := row.Get("Teaching_Hospital_Name", "Hospital Name", "Name")
	if name == "" {
		return domain.RawRecord{}, false
	}

	city := row.Get("City")
	state := row.Get("State")
	address := row.Get("Address")
	if address == "" {
		var parts []string
		for _, p := range []string{row.Get("Address_Line_1"), city, state, row.Get("Zip")} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		address = strings.Join(parts, ", ")
	}

	rec := domain.RawRecord{
		Name:    name,
		Type:    domain.TypeAcademicMedicalCenter,
		City:    city,
		State:   state,
		Address: address,
	}
	if ccn := row.Get("CCN"); ccn != "" {
		rec.SetAttr("ccn", ccn)
	}
	return rec, true
}

func mapHRSA(row adapter.Row) (domain.RawRecord, bool) {
	if row.Get("Country") != "US" {
		return domain.RawRecord{}, false
	}
	name := row.Get("Site_Name")
	if name == "" {
		return domain.RawRecord{}, false
	}

	rec := domain.RawRecord{
		Name:          name,
		Type:          domain.TypeClinic,
		State:         row.Get("State"),
		City:          row.Get("City"),
		Address:       row.Get("Address"),
		LatitudeText:  row.Get("Latitude"),
		LongitudeText: row.Get("Longitude"),
	}
	if subtype := row.Get("Site_Type"); subtype != "" {
		rec.SetAttr(domain.AttrSubtype, subtype)
	}
	return rec, true
}
