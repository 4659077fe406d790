package sources

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
)

// errMissingListing signals that a page no longer has the expected markup.
var errMissingListing = errors.New("listing not found")

// localNamePattern splits "Peking University (北京大学)" into its English and
// Chinese names.
var localNamePattern = regexp.MustCompile(`^(.*?)\s*[(（]([^()（）]*\p{Han}[^()（）]*)[)）]\s*$`)

// splitLocalName separates a trailing parenthesized CJK name.
func splitLocalName(text string) (name, local string) {
	m := localNamePattern.FindStringSubmatch(text)
	if m == nil {
		return text, ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// splitLocation splits "City, State" on its last comma. Without a comma the
// whole text is the city.
func splitLocation(location string) (city, state string) {
	i := strings.LastIndex(location, ",")
	if i < 0 {
		return strings.TrimSpace(location), ""
	}
	return strings.TrimSpace(location[:i]), strings.TrimSpace(location[i+1:])
}

func requireMatch(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", errMissingListing, selector)
	}
	return sel, nil
}

// dataRows yields the td cells of every row that has at least minCells of
// them. Header rows made of th cells are skipped.
func dataRows(table *goquery.Selection, minCells int, fn func(cells []string, row *goquery.Selection)) {
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		tds := row.ChildrenFiltered("td")
		if tds.Length() < minCells {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, adapter.CellText(td))
		})
		fn(cells, row)
	})
}

// sectionList returns the first list following the heading with the given
// anchor id. Both the legacy span anchor and the current heading markup are
// recognized.
func sectionList(doc *goquery.Document, id string) *goquery.Selection {
	anchor := doc.Find("#" + id).First()
	if anchor.Length() == 0 {
		return anchor
	}

	heading := anchor.Closest("div.mw-heading")
	if heading.Length() == 0 {
		heading = anchor.Closest("h2, h3, h4")
	}
	if heading.Length() == 0 {
		heading = anchor.Parent()
	}
	return heading.NextAllFiltered("ul, ol").First()
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
