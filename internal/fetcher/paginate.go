package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// PageParser turns one fetched page into records. An empty result ends
// pagination.
type PageParser func(page int, resp *Response) ([]domain.RawRecord, error)

// FetchPaginated walks baseURL?pageParam=N from startPage for at most
// maxPages pages. It stops at the first page that cannot be fetched, fails
// to parse, or yields no records, and waits the configured page delay
// between pages. Only context cancellation is returned as an error.
func (f *Fetcher) FetchPaginated(
	ctx context.Context,
	baseURL, pageParam string,
	startPage, maxPages int,
	parse PageParser,
) ([]domain.RawRecord, error) {
	var records []domain.RawRecord

	for page := startPage; page < startPage+maxPages; page++ {
		if page > startPage {
			if err := f.sleep(ctx, f.pageDelay); err != nil {
				return records, err
			}
		}

		pageURL, err := PageURL(baseURL, pageParam, page)
		if err != nil {
			return records, err
		}

		resp, err := f.Fetch(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			f.log.Warn("Pagination stopped on fetch failure",
				logger.String("url", pageURL), logger.Int("page", page))
			break
		}

		pageRecords, err := parse(page, resp)
		if err != nil {
			f.log.Warn("Pagination stopped on parse failure",
				logger.String("url", pageURL), logger.Int("page", page), logger.Error(err))
			break
		}
		if len(pageRecords) == 0 {
			f.log.Debug("Pagination reached empty page",
				logger.String("url", pageURL), logger.Int("page", page))
			break
		}
		records = append(records, pageRecords...)
	}

	return records, nil
}

// PageURL sets pageParam=page on baseURL, preserving any existing query.
func PageURL(baseURL, pageParam string, page int) (string, error) {
	if pageParam == "" {
		return "", errors.New("page parameter is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
