package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Document parses the body as HTML.
func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html from %s: %w", r.URL, err)
	}
	return doc, nil
}

// Resolve turns a possibly relative href into an absolute URL against the
// response URL.
func (r *Response) Resolve(href string) (string, error) {
	base, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
