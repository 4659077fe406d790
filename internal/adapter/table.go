package adapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// Columns lists the header keywords that identify each field in an HTML
// table. Matching is case-insensitive substring matching against the header
// text; the first matching field wins.
type Columns struct {
	Name        []string
	State       []string
	City        []string
	Address     []string
	Website     []string
	Established []string
	Type        []string
}

// DefaultColumns matches the headers used by most directory tables.
var DefaultColumns = Columns{
	Name:        []string{"name", "institution", "college", "school", "university", "hospital"},
	State:       []string{"state", "province", "region", "territory"},
	City:        []string{"city", "location", "town", "district"},
	Address:     []string{"address"},
	Website:     []string{"website", "url"},
	Established: []string{"established", "founded", "year"},
	Type:        []string{"type", "category"},
}

type field int

const (
	fieldNone field = iota
	fieldName
	fieldState
	fieldCity
	fieldAddress
	fieldWebsite
	fieldEstablished
	fieldType
)

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d\d|20\d\d)\b`)

func (c Columns) match(header string) field {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return fieldNone
	}
	// Website before name so "Website of institution" is not taken as a name.
	ordered := []struct {
		f        field
		keywords []string
	}{
		{fieldWebsite, c.Website},
		{fieldEstablished, c.Established},
		{fieldAddress, c.Address},
		{fieldState, c.State},
		{fieldCity, c.City},
		{fieldType, c.Type},
		{fieldName, c.Name},
	}
	for _, o := range ordered {
		for _, kw := range o.keywords {
			if strings.Contains(h, kw) {
				return o.f
			}
		}
	}
	return fieldNone
}

// ParseTables reads every table matched by selector and returns one record
// per data row with a non-empty name. Tables without a recognizable name
// column are skipped.
func ParseTables(doc *goquery.Document, selector string, cols Columns, typ domain.InstitutionType) []domain.RawRecord {
	var out []domain.RawRecord

	doc.Find(selector).Each(func(_ int, table *goquery.Selection) {
		var layout []field
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td, th")
			if layout == nil {
				if row.ChildrenFiltered("td").Length() > 0 {
					return
				}
				layout = headerLayout(cells, cols)
				return
			}
			if rec, ok := rowRecord(cells, layout, typ); ok {
				out = append(out, rec)
			}
		})
	})

	return out
}

func headerLayout(cells *goquery.Selection, cols Columns) []field {
	layout := make([]field, cells.Length())
	seen := map[field]bool{}
	hasName := false
	cells.Each(func(i int, cell *goquery.Selection) {
		f := cols.match(cell.Text())
		if f == fieldNone || seen[f] {
			return
		}
		seen[f] = true
		layout[i] = f
		if f == fieldName {
			hasName = true
		}
	})
	if !hasName {
		return []field{}
	}
	return layout
}

func rowRecord(cells *goquery.Selection, layout []field, typ domain.InstitutionType) (domain.RawRecord, bool) {
	rec := domain.RawRecord{Type: typ}
	cells.Each(func(i int, cell *goquery.Selection) {
		if i >= len(layout) {
			return
		}
		text := CellText(cell)
		switch layout[i] {
		case fieldName:
			rec.Name = text
			if rec.Website == "" {
				if href, ok := cell.Find("a.external[href], a[href^='http']").First().Attr("href"); ok {
					rec.Website = href
				}
			}
		case fieldState:
			rec.State = text
		case fieldCity:
			rec.City = text
		case fieldAddress:
			rec.Address = text
		case fieldWebsite:
			if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
				rec.Website = href
			} else {
				rec.Website = text
			}
		case fieldEstablished:
			if year, ok := ParseYear(text); ok {
				rec.SetAttr(domain.AttrEstYear, year)
			}
		case fieldType:
			rec.SetAttr(domain.AttrSubtype, text)
		}
	})
	if strings.TrimSpace(rec.Name) == "" {
		return rec, false
	}
	return rec, true
}

// CellText returns the visible text of a cell without footnote markers.
func CellText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("sup, .reference, style, script").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

// ParseYear extracts the first plausible four-digit year from s.
func ParseYear(s string) (int, bool) {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ListItem is one entry of an HTML list.
type ListItem struct {
	Text string
	Href string
}

// ListItems returns the items matched by selector with their first link.
func ListItems(doc *goquery.Document, selector string) []ListItem {
	var items []ListItem
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := CellText(s)
		if text == "" {
			return
		}
		href, _ := s.Find("a[href]").First().Attr("href")
		items = append(items, ListItem{Text: text, Href: href})
	})
	return items
}
