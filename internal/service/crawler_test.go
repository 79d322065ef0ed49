package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jjenkins/lottosync/internal/model"
	"github.com/jjenkins/lottosync/internal/testutil"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned pages; missing pages fail
type stubFetcher struct {
	pages     map[int]string
	requested []int
	// onFetch runs before each page is served
	onFetch func(page int)
}

func (s *stubFetcher) Fetch(ctx context.Context, page int) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	s.requested = append(s.requested, page)
	if s.onFetch != nil {
		s.onFetch(page)
	}
	body, ok := s.pages[page]
	return body, ok
}

// pageOf renders n valid rows whose dates are unique to the page
func pageOf(page, n int) string {
	winning := numberList("lottery-number-list", "1", "2", "3", "4", "5")
	out := ""
	for i := 0; i < n; i++ {
		out += drawRow(fmt.Sprintf("Type %d", i), fmt.Sprintf("2023-%02d-%02d", page%12+1, i+1), winning)
	}
	return out
}

func newTestCrawler(t *testing.T, f PageFetcher) *Crawler {
	return NewCrawler(f, fixedParser(), testutil.Logger(t))
}

func TestCrawlStopsAfterEmptyPages(t *testing.T) {
	f := &stubFetcher{}
	c := newTestCrawler(t, f)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: 1, LastSuccessfulPage: 4})
	require.Equal(t, []int{1, 2, 3, 4, 5}, f.requested)
	require.Equal(t, StopEmptyPages, result.Reason)
	require.Equal(t, 5, result.PagesProcessed)
	require.Equal(t, 5, result.FailedPages)
	require.Equal(t, 4, result.LastSuccessfulPage)
	require.Empty(t, result.Draws)
	require.False(t, result.Cancelled)
}

func TestCrawlResumesAfterSavedPage(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{8: pageOf(8, 2), 9: pageOf(9, 3)}}
	c := newTestCrawler(t, f)

	state := model.ScraperState{LastPage: 7}
	start := ResolveStartPage(0, state, false)
	require.Equal(t, 8, start)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: start, LastSuccessfulPage: state.LastPage})
	require.Equal(t, 8, f.requested[0])
	require.Len(t, result.Draws, 5)
	require.Equal(t, 9, result.LastSuccessfulPage)
	require.Equal(t, "8", result.Draws[0].Metadata[model.MetaPage])
	require.Equal(t, "9", result.Draws[4].Metadata[model.MetaPage])
	// Pages 10..14 fail.
	require.Equal(t, 7, result.PagesProcessed)
}

func TestCrawlEmptyStreakResets(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{
		1: pageOf(1, 1),
		// 2..5 fail, 6 succeeds, then 7..11 fail
		6: pageOf(6, 1),
	}}
	c := newTestCrawler(t, f)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: 1})
	require.Equal(t, StopEmptyPages, result.Reason)
	require.Equal(t, 11, result.PagesProcessed)
	require.Equal(t, 6, result.LastSuccessfulPage)
	require.Len(t, result.Draws, 2)
}

func TestCrawlPageWithOnlyRejectedRowsIsEmpty(t *testing.T) {
	pages := map[int]string{}
	for p := 1; p <= 5; p++ {
		pages[p] = paginationRow
	}
	f := &stubFetcher{pages: pages}
	c := newTestCrawler(t, f)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: 1})
	require.Equal(t, StopEmptyPages, result.Reason)
	require.Equal(t, 0, result.FailedPages)
	require.Equal(t, 5, result.RejectedRows)
	require.Equal(t, 0, result.LastSuccessfulPage)
}

func TestCrawlMaxPages(t *testing.T) {
	pages := map[int]string{}
	for p := 1; p <= 10; p++ {
		pages[p] = pageOf(p, 1)
	}
	f := &stubFetcher{pages: pages}
	c := newTestCrawler(t, f)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: 3, MaxPages: 4})
	require.Equal(t, []int{3, 4, 5, 6}, f.requested)
	require.Equal(t, StopMaxPages, result.Reason)
	require.Equal(t, 6, result.LastSuccessfulPage)
	require.Len(t, result.Draws, 4)
}

func TestCrawlCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pages := map[int]string{}
	for p := 1; p <= 10; p++ {
		pages[p] = pageOf(p, 2)
	}
	f := &stubFetcher{pages: pages, onFetch: func(page int) {
		if page == 3 {
			cancel()
		}
	}}
	c := newTestCrawler(t, f)

	result := c.Crawl(ctx, CrawlOptions{StartPage: 1})
	require.True(t, result.Cancelled)
	require.Equal(t, StopCancelled, result.Reason)
	// Page 3 was already in flight and is kept.
	require.Equal(t, []int{1, 2, 3}, f.requested)
	require.Len(t, result.Draws, 6)
	require.Equal(t, 3, result.LastSuccessfulPage)
}

func TestCrawlKeepsPageInFlightWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pn")
		mu.Lock()
		requested = append(requested, page)
		n := len(requested)
		mu.Unlock()

		if page == "2" {
			// Interrupted while the upstream is still answering.
			cancel()
			time.Sleep(200 * time.Millisecond)
		}
		w.Write([]byte(pageOf(n, 1)))
	}))
	defer server.Close()

	log := testutil.Logger(t)
	f := NewFetcher(FetcherOptions{BaseURL: server.URL}, log)
	c := NewCrawler(f, fixedParser(), log)

	result := c.Crawl(ctx, CrawlOptions{StartPage: 1})
	require.True(t, result.Cancelled)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"1", "2"}, requested)
	require.Equal(t, 2, result.PagesProcessed)
	require.Len(t, result.Draws, 2)
	require.Equal(t, 2, result.LastSuccessfulPage)
}

func TestCrawlNeverLowersResumePoint(t *testing.T) {
	f := &stubFetcher{pages: map[int]string{2: pageOf(2, 1)}}
	c := newTestCrawler(t, f)

	result := c.Crawl(context.Background(), CrawlOptions{StartPage: 1, MaxPages: 3, LastSuccessfulPage: 20})
	require.Equal(t, 20, result.LastSuccessfulPage)
	require.Len(t, result.Draws, 1)
}

func TestResolveStartPage(t *testing.T) {
	state := model.ScraperState{LastPage: 7}
	require.Equal(t, 8, ResolveStartPage(0, state, false))
	require.Equal(t, 3, ResolveStartPage(3, state, false))
	require.Equal(t, 1, ResolveStartPage(3, state, true))
	require.Equal(t, 1, ResolveStartPage(0, model.ScraperState{}, false))
}
