package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/model"
)

// partialIngestTimeout bounds the write of a cancelled run's draws
const partialIngestTimeout = 2 * time.Minute

// StateStore persists the crawler's resume record between runs
type StateStore interface {
	Load(ctx context.Context) (model.ScraperState, error)
	Save(ctx context.Context, state model.ScraperState) error
	Reset(ctx context.Context) error
}

// RunOptions mirrors the scrape command's flags
type RunOptions struct {
	StartPage   int
	MaxPages    int
	BatchSize   int
	ForceScrape bool
	Reset       bool
	CacheFile   string
}

// RunReport summarizes one scrape run
type RunReport struct {
	Replayed           bool
	Cancelled          bool
	StartPage          int
	PagesProcessed     int
	FailedPages        int
	Scraped            int
	Ingest             IngestResult
	LastSuccessfulPage int
	NextPage           int
	StateSaved         bool
}

// Scraper orchestrates a crawl-and-ingest run bracketed by the scrape state
type Scraper struct {
	crawler  *Crawler
	ingestor *Ingestor
	state    StateStore
	log      *logger.Logger
	now      func() time.Time
}

// NewScraper creates a new Scraper
func NewScraper(crawler *Crawler, ingestor *Ingestor, state StateStore, log *logger.Logger) *Scraper {
	return &Scraper{
		crawler:  crawler,
		ingestor: ingestor,
		state:    state,
		log:      log,
		now:      time.Now,
	}
}

// Run loads the resume point, crawls (or replays the candidate cache),
// ingests, and saves the new state. State is only written after a live crawl
// whose batches all committed.
func (s *Scraper) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{}

	var state model.ScraperState
	if opts.Reset {
		s.log.Info("Resetting scraper state")
		if err := s.state.Reset(ctx); err != nil {
			return report, err
		}
		if opts.CacheFile != "" {
			if err := removeCache(opts.CacheFile); err != nil {
				return report, err
			}
		}
	} else {
		loaded, err := s.state.Load(ctx)
		if err != nil {
			return report, err
		}
		state = loaded
	}

	if !opts.ForceScrape && !opts.Reset && opts.CacheFile != "" {
		cached, ok, err := LoadCandidates(opts.CacheFile)
		if err != nil {
			return report, err
		}
		if ok && len(cached) > 0 {
			return s.replay(ctx, cached, opts, report)
		}
	}

	report.StartPage = ResolveStartPage(opts.StartPage, state, opts.Reset)
	s.log.Infof("Starting crawl at page %d (saved resume page %d)", report.StartPage, state.LastPage)

	crawl := s.crawler.Crawl(ctx, CrawlOptions{
		StartPage:          report.StartPage,
		MaxPages:           opts.MaxPages,
		LastSuccessfulPage: state.LastPage,
	})
	report.Cancelled = crawl.Cancelled
	report.PagesProcessed = crawl.PagesProcessed
	report.FailedPages = crawl.FailedPages
	report.Scraped = len(crawl.Draws)
	report.LastSuccessfulPage = crawl.LastSuccessfulPage

	if opts.CacheFile != "" && len(crawl.Draws) > 0 {
		if err := SaveCandidates(opts.CacheFile, crawl.Draws); err != nil {
			s.log.Warningf("Could not save candidate cache: %v", err)
		}
	}

	// A cancelled run still persists what it gathered.
	writeCtx := ctx
	if crawl.Cancelled {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), partialIngestTimeout)
		defer cancel()
	}

	result, err := s.ingestor.IngestBatches(writeCtx, crawl.Draws, opts.BatchSize)
	report.Ingest = result
	if err != nil {
		return report, fmt.Errorf("ingest failed, scraper state not updated: %w", err)
	}

	next := model.ScraperState{
		LastPage:       crawl.LastSuccessfulPage,
		LastScrapeDate: s.now().UTC(),
		TotalScraped:   state.TotalScraped + len(crawl.Draws),
	}
	if err := s.state.Save(writeCtx, next); err != nil {
		return report, err
	}
	report.StateSaved = true
	report.NextPage = next.LastPage + 1

	if opts.CacheFile != "" {
		if err := removeCache(opts.CacheFile); err != nil {
			s.log.Warningf("Could not remove candidate cache: %v", err)
		}
	}

	return report, nil
}

// replay ingests a saved crawl without touching the scrape state
func (s *Scraper) replay(ctx context.Context, cached []model.CandidateDraw, opts RunOptions, report *RunReport) (*RunReport, error) {
	s.log.Infof("Replaying %d cached draws from %s (use --force-scrape to crawl)", len(cached), opts.CacheFile)
	report.Replayed = true
	report.Scraped = len(cached)

	result, err := s.ingestor.IngestBatches(ctx, cached, opts.BatchSize)
	report.Ingest = result
	if err != nil {
		return report, fmt.Errorf("replay ingest failed: %w", err)
	}

	if err := removeCache(opts.CacheFile); err != nil {
		s.log.Warningf("Could not remove candidate cache: %v", err)
	}
	return report, nil
}

func removeCache(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove candidate cache: %w", err)
	}
	return nil
}
