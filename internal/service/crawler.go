package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/model"
)

// MaxEmptyPages is the number of consecutive draw-less pages that ends a crawl
const MaxEmptyPages = 5

// StopReason records why a crawl reached its terminal state
type StopReason string

const (
	StopMaxPages   StopReason = "max pages reached"
	StopEmptyPages StopReason = "too many consecutive empty pages"
	StopCancelled  StopReason = "cancelled"
)

// CrawlOptions configures one crawl run
type CrawlOptions struct {
	StartPage int
	// MaxPages caps pages processed since StartPage; 0 means unlimited
	MaxPages int
	// LastSuccessfulPage seeds the resume point carried through the run
	LastSuccessfulPage int
}

// CrawlResult is everything a run accumulated, including on cancellation
type CrawlResult struct {
	Draws              []model.CandidateDraw
	LastSuccessfulPage int
	PagesProcessed     int
	FailedPages        int
	RejectedRows       int
	Reason             StopReason
	Cancelled          bool
}

// Crawler drives the fetcher and parser across result pages, one page at a time
type Crawler struct {
	fetcher       PageFetcher
	parser        *Parser
	maxEmptyPages int
	log           *logger.Logger
}

// NewCrawler creates a new Crawler
func NewCrawler(fetcher PageFetcher, parser *Parser, log *logger.Logger) *Crawler {
	return &Crawler{
		fetcher:       fetcher,
		parser:        parser,
		maxEmptyPages: MaxEmptyPages,
		log:           log,
	}
}

// ResolveStartPage picks the first page of a run: page 1 on reset, the
// explicit page when given, otherwise the page after the saved resume point.
func ResolveStartPage(explicit int, state model.ScraperState, reset bool) int {
	if reset {
		return 1
	}
	if explicit > 0 {
		return explicit
	}
	return state.LastPage + 1
}

// Crawl fetches pages sequentially from opts.StartPage until a stop
// condition holds. Cancellation is only observed between pages; the draws
// gathered so far are returned either way.
func (c *Crawler) Crawl(ctx context.Context, opts CrawlOptions) *CrawlResult {
	start := opts.StartPage
	if start < 1 {
		start = 1
	}

	result := &CrawlResult{LastSuccessfulPage: opts.LastSuccessfulPage}
	emptyStreak := 0

	for page := start; ; page++ {
		if opts.MaxPages > 0 && result.PagesProcessed >= opts.MaxPages {
			result.Reason = StopMaxPages
			break
		}
		if ctx.Err() != nil {
			result.Reason = StopCancelled
			result.Cancelled = true
			break
		}

		progress := fmt.Sprintf("[page %d]", page)
		if opts.MaxPages > 0 {
			progress = fmt.Sprintf("[%d/%d page %d]", result.PagesProcessed+1, opts.MaxPages, page)
		}

		body, ok := c.fetcher.Fetch(ctx, page)
		if !ok && ctx.Err() != nil {
			// Interrupted while waiting or fetching: the page was never processed.
			result.Reason = StopCancelled
			result.Cancelled = true
			break
		}
		result.PagesProcessed++

		var draws []model.CandidateDraw
		if ok {
			var stats PageStats
			draws, stats = c.parser.ParsePage(body)
			result.RejectedRows += stats.Rejected
			c.log.Infof("%s %d rows, %d draws, %d rejected", progress, stats.Rows, stats.Accepted, stats.Rejected)
		} else {
			result.FailedPages++
			c.log.Infof("%s fetch failed", progress)
		}

		if len(draws) == 0 {
			emptyStreak++
			if emptyStreak >= c.maxEmptyPages {
				result.Reason = StopEmptyPages
				break
			}
			continue
		}

		emptyStreak = 0
		for i := range draws {
			draws[i].Metadata[model.MetaPage] = strconv.Itoa(page)
		}
		result.Draws = append(result.Draws, draws...)
		if page > result.LastSuccessfulPage {
			result.LastSuccessfulPage = page
		}
	}

	c.log.Infof("Crawl stopped (%s): %d pages, %d draws, last successful page %d",
		result.Reason, result.PagesProcessed, len(result.Draws), result.LastSuccessfulPage)

	return result
}
