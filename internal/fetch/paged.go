// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// windowFormat is the arXiv lastUpdatedDate range filter timestamp layout.
const windowFormat = "200601021504"

// Window is an absolute UTC time span derived from a local calendar date.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow converts the calendar date of t, interpreted in t's location,
// into the UTC span covering local midnight to the next local midnight.
func DayWindow(t time.Time) Window {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return Window{
		Start: start.UTC(),
		End:   start.AddDate(0, 0, 1).UTC(),
	}
}

// filter renders the window as a lastUpdatedDate range clause.
func (w Window) filter() string {
	return fmt.Sprintf("lastUpdatedDate:[%s TO %s]",
		w.Start.Format(windowFormat), w.End.Format(windowFormat))
}

// FetchByCategoryPaged retrieves every entry in a category last updated on
// the given local calendar date, paging ascending by last-updated time.
//
// Pagination stops when, in priority order: the accumulated results reach
// MaxTotal; a page comes back empty; a page comes back short (no more data);
// or two consecutive pages fail after retries. A first-page failure aborts
// immediately. Partial results accumulated before an abort are returned
// alongside the error.
func (c *Client) FetchByCategoryPaged(ctx context.Context, category string, date time.Time, w io.Writer) ([]*types.Paper, error) {
	perPage := c.Config.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	maxPages := c.Config.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	maxTotal := c.Config.MaxTotal
	if maxTotal <= 0 {
		maxTotal = 200
	}
	pageDelay := c.Config.PageDelay
	if pageDelay <= 0 {
		pageDelay = 3 * time.Second
	}

	window := DayWindow(date)
	query := fmt.Sprintf("cat:%s AND %s", category, window.filter())

	var papers []*types.Paper
	consecutiveFailures := 0

	for page := 0; page < maxPages; page++ {
		remaining := maxTotal - len(papers)
		if remaining <= 0 {
			break
		}
		size := perPage
		if remaining < size {
			size = remaining
		}

		params := url.Values{
			"search_query": {query},
			"start":        {strconv.Itoa(len(papers))},
			"max_results":  {strconv.Itoa(size)},
			"sortBy":       {"lastUpdatedDate"},
			"sortOrder":    {"ascending"},
		}

		pagePapers, err := c.fetchPageWithRetry(ctx, params)
		if err != nil {
			consecutiveFailures++
			fmt.Fprintf(w, "warning: %s page %d failed: %v\n", category, page, err)
			if page == 0 {
				return papers, fmt.Errorf("first page for %s: %w", category, err)
			}
			if consecutiveFailures >= 2 {
				return papers, fmt.Errorf("aborting %s after %d consecutive page failures: %w", category, consecutiveFailures, err)
			}
			continue
		}
		consecutiveFailures = 0

		if len(pagePapers) == 0 {
			break
		}
		papers = append(papers, pagePapers...)
		if len(pagePapers) < size {
			break
		}
		if len(papers) >= maxTotal {
			break
		}

		if err := httputil.Sleep(ctx, pageDelay); err != nil {
			return papers, err
		}
	}

	if len(papers) > maxTotal {
		papers = papers[:maxTotal]
	}
	return papers, nil
}

// fetchPageWithRetry requests one page, retrying per the failure taxonomy:
// server errors and network failures back off exponentially, capped; rate
// limits wait a longer fixed interval except on the final attempt; other
// client errors abort the page with no retry.
func (c *Client) fetchPageWithRetry(ctx context.Context, params url.Values) ([]*types.Paper, error) {
	attempts := c.Config.PageRetries
	if attempts <= 0 {
		attempts = 3
	}
	base := c.Config.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	limit := c.Config.BackoffCap
	if limit <= 0 {
		limit = 10 * time.Second
	}
	rateWait := c.Config.RateLimitWait
	if rateWait <= 0 {
		rateWait = 20 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		papers, err := c.queryPage(ctx, params)
		if err == nil {
			return papers, nil
		}
		lastErr = err

		switch httputil.Classify(err) {
		case httputil.KindClient:
			return nil, err
		case httputil.KindRateLimited:
			if attempt == attempts {
				return nil, err
			}
			if sleepErr := httputil.Sleep(ctx, rateWait); sleepErr != nil {
				return nil, sleepErr
			}
		default:
			if attempt == attempts {
				return nil, err
			}
			if sleepErr := httputil.Sleep(ctx, httputil.ExpBackoff(attempt, base, limit)); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, lastErr
}
