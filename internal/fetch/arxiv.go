// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves candidate papers from the arXiv API, with
// timezone-aware date windows, pagination, and retry hardening.
package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// archiveAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var archiveAPIBase = "https://export.arxiv.org/api/query"

// Client queries the arXiv API.
type Client struct {
	HTTP   *http.Client
	Config types.FetchConfig
}

// FetchByCategory runs a single-shot query for the newest entries in a
// category, retried with a fixed delay. On exhaustion it returns an empty
// list rather than an error so sibling categories are unaffected.
func (c *Client) FetchByCategory(ctx context.Context, category string, maxResults int, w io.Writer) []*types.Paper {
	if maxResults <= 0 {
		maxResults = 20
	}
	retries := c.Config.Retries
	if retries <= 0 {
		retries = 3
	}
	delay := c.Config.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	params := url.Values{
		"search_query": {"cat:" + category},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	for attempt := 1; attempt <= retries; attempt++ {
		papers, err := c.queryPage(ctx, params)
		if err == nil {
			return papers
		}
		fmt.Fprintf(w, "warning: %s attempt %d/%d failed: %v\n", category, attempt, retries, err)
		if attempt < retries {
			if sleepErr := httputil.Sleep(ctx, delay); sleepErr != nil {
				break
			}
		}
	}
	return nil
}

// queryPage issues one request against the archive and parses the Atom feed.
// Non-2xx responses surface as *httputil.StatusError so callers can classify
// them for retry decisions.
func (c *Client) queryPage(ctx context.Context, params url.Values) ([]*types.Paper, error) {
	reqURL := archiveAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.Config.UserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("archive query: %w", &httputil.StatusError{Code: resp.StatusCode})
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing archive response: %w", err)
	}

	papers := make([]*types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, paperFromEntry(entry))
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string         `xml:"id"`
	Title           string         `xml:"title"`
	Summary         string         `xml:"summary"`
	Published       string         `xml:"published"`
	Updated         string         `xml:"updated"`
	Authors         []atomAuthor   `xml:"author"`
	Links           []atomLink     `xml:"link"`
	Categories      []atomCategory `xml:"category"`
	PrimaryCategory atomCategory   `xml:"primary_category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// parseErrorTitle marks entries the feed returned in a shape we could not
// interpret. The batch continues; a single bad entry never aborts a page.
const parseErrorTitle = "Parse error"

// paperFromEntry converts one Atom entry into a Paper. Malformed entries
// yield a placeholder record instead of an error.
func paperFromEntry(entry atomEntry) *types.Paper {
	id := extractArchiveID(entry.ID)
	if id == "" || strings.TrimSpace(entry.Title) == "" {
		return &types.Paper{Title: parseErrorTitle}
	}

	p := &types.Paper{
		ID:              id,
		Title:           strings.TrimSpace(entry.Title),
		Abstract:        strings.TrimSpace(entry.Summary),
		AbstractURL:     entry.ID,
		PrimaryCategory: entry.PrimaryCategory.Term,
	}

	for _, a := range entry.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	for _, c := range entry.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	for _, l := range entry.Links {
		switch {
		case l.Title == "pdf":
			p.PDFURL = l.Href
		case l.Rel == "alternate":
			p.AbstractURL = l.Href
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = strings.Replace(p.AbstractURL, "/abs/", "/pdf/", 1)
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		p.Published = t
	}
	if t, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
		p.Updated = t
	}
	return p
}

// extractArchiveID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2403.01234v1" → "2403.01234").
func extractArchiveID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
