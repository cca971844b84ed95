// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name      string
		date      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "utc date",
			date:      time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "ahead of utc",
			date:      time.Date(2024, 3, 1, 9, 0, 0, 0, tokyo),
			wantStart: time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DayWindow(tt.date)
			assert.True(t, w.Start.Equal(tt.wantStart), "start = %v, want %v", w.Start, tt.wantStart)
			assert.True(t, w.End.Equal(tt.wantEnd), "end = %v, want %v", w.End, tt.wantEnd)
		})
	}
}

func TestWindowFilter(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "lastUpdatedDate:[202402291500 TO 202403011500]", w.filter())
}

// pageServer serves n papers split according to the requested start and
// max_results parameters, recording every request it sees.
type pageServer struct {
	mu       sync.Mutex
	papers   []string
	requests []struct{ start, size int }
}

func (s *pageServer) handler(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	size, _ := strconv.Atoi(r.URL.Query().Get("max_results"))

	s.mu.Lock()
	s.requests = append(s.requests, struct{ start, size int }{start, size})
	s.mu.Unlock()

	var entries []string
	for i := start; i < start+size && i < len(s.papers); i++ {
		entries = append(entries, feedEntry(s.papers[i], "Paper "+s.papers[i], "2024-03-01T10:00:00Z"))
	}
	fmt.Fprint(w, feedOf(entries...))
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("2403.%05d", i+1)
	}
	return out
}

func TestPagedRespectsMaxTotal(t *testing.T) {
	srv := &pageServer{papers: ids(10)}
	c := testClient(t, srv.handler) // PerPage=3, MaxTotal=5

	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.NoError(t, err)

	assert.Len(t, papers, 5)
	// ceil(5/3) = 2 page requests: 3 then min(3, 5-3)=2.
	require.Len(t, srv.requests, 2)
	assert.Equal(t, 0, srv.requests[0].start)
	assert.Equal(t, 3, srv.requests[0].size)
	assert.Equal(t, 3, srv.requests[1].start)
	assert.Equal(t, 2, srv.requests[1].size)
}

func TestPagedStopsOnShortPage(t *testing.T) {
	srv := &pageServer{papers: ids(4)}
	c := testClient(t, srv.handler)

	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.NoError(t, err)

	// Page 1 full (3), page 2 short (1) -> stop without a third request.
	assert.Len(t, papers, 4)
	assert.Len(t, srv.requests, 2)
}

func TestPagedStopsOnEmptyPage(t *testing.T) {
	srv := &pageServer{papers: nil}
	c := testClient(t, srv.handler)

	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.Len(t, srv.requests, 1)
}

func TestPagedSendsWindowAscending(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	var sortBy, sortOrder string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("search_query"))
		sortBy = r.URL.Query().Get("sortBy")
		sortOrder = r.URL.Query().Get("sortOrder")
		mu.Unlock()
		fmt.Fprint(w, feedOf())
	})

	tokyo := time.FixedZone("JST", 9*3600)
	_, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 12, 0, 0, 0, tokyo), &strings.Builder{})
	require.NoError(t, err)

	require.NotEmpty(t, queries)
	assert.Equal(t, "cat:cs.AI AND lastUpdatedDate:[202402291500 TO 202403011500]", queries[0])
	assert.Equal(t, "lastUpdatedDate", sortBy)
	assert.Equal(t, "ascending", sortOrder)
}

func TestPageRetryServerErrorsThenSuccess(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, feedOf(feedEntry("2403.00001", "Paper One", "2024-03-01T10:00:00Z")))
	})

	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, 3, calls)
}

func TestPageClientErrorAbortsWithoutRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPageRateLimitRetriesButNotOnFinalAttempt(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	})

	start := time.Now()
	_, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.Error(t, err)
	// All three attempts used, with two rate-limit waits in between; the
	// final 429 returns without waiting again.
	assert.Equal(t, 3, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPagedFirstPageFailureAbortsImmediately(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})

	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &strings.Builder{})
	require.Error(t, err)
	assert.Empty(t, papers)
	// Only the first page's retry budget is spent.
	assert.Equal(t, 3, calls)
}

func TestPagedConsecutiveFailuresAbortWithPartialResults(t *testing.T) {
	srv := &pageServer{papers: ids(10)}
	var mu sync.Mutex
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			srv.handler(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	c.Config.MaxTotal = 10
	c.Config.MaxPages = 10

	var log strings.Builder
	papers, err := c.FetchByCategoryPaged(context.Background(), "cs.AI",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive")

	// The successful first page survives the abort.
	assert.Len(t, papers, 3)
	assert.Contains(t, log.String(), "warning:")
}
