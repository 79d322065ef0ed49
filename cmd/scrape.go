package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/service"
	"github.com/jjenkins/lottosync/internal/store"
	"github.com/spf13/cobra"
)

var scrapeStartPage int
var scrapeMaxPages int
var scrapeBatchSize int
var scrapeForce bool
var scrapeReset bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the results feed and store new draws",
	Long: `Scrape walks the results feed one page at a time, waiting between
requests, parses every draw row, and inserts draws not already stored.

A run resumes after the last page that yielded draws. It stops after 5
consecutive pages without draws, after --max-pages pages, or on Ctrl-C; in
every case the draws gathered so far are stored and the resume point saved.

Crawled draws are kept in DRAWSYNC_CACHE_FILE until they are stored. If a
previous run left that file behind, scrape stores it instead of crawling.

Examples:
  # Continue from where the last run stopped
  ./lottosync scrape

  # Crawl 20 pages starting at page 100
  ./lottosync scrape --start-page 100 --max-pages 20

  # Forget the resume point and start again from page 1
  ./lottosync scrape --reset

  # Ignore a leftover cache file and crawl anyway
  ./lottosync scrape --force-scrape`,
	Run: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVar(&scrapeStartPage, "start-page", 0, "Page to start from (default: page after the saved resume point)")
	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "Maximum pages to process; 0 means until the feed runs dry")
	scrapeCmd.Flags().IntVar(&scrapeBatchSize, "batch-size", cfg.Scraper.BatchSize, "Draws written per transaction")
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force-scrape", false, "Crawl even if a cached crawl is waiting to be stored")
	scrapeCmd.Flags().BoolVar(&scrapeReset, "reset", false, "Clear the saved resume point and start from page 1")
}

func runScrape(cmd *cobra.Command, args []string) {
	log, closeLog := newLogger()
	defer closeLog()

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received interrupt signal, finishing current page...")
		cancel()
	}()

	db := openStore(cmd, log)
	defer db.Close()

	// Create dependencies
	fetcher := service.NewFetcher(service.FetcherOptions{
		BaseURL:   cfg.Scraper.BaseURL,
		UserAgent: cfg.Scraper.UserAgent,
		Delay:     cfg.Scraper.RequestDelay,
		Timeout:   cfg.Scraper.RequestTimeout,
	}, log)
	crawler := service.NewCrawler(fetcher, service.NewParser(), log)
	ingestor := service.NewIngestor(store.NewDrawStore(db), log)
	stateStore := store.NewStateStore(db, store.DefaultStateKey)
	scraper := service.NewScraper(crawler, ingestor, stateStore, log)

	log.Infof("Request delay %s, batch size %d", fetcher.Delay(), scrapeBatchSize)

	report, err := scraper.Run(ctx, service.RunOptions{
		StartPage:   scrapeStartPage,
		MaxPages:    scrapeMaxPages,
		BatchSize:   scrapeBatchSize,
		ForceScrape: scrapeForce,
		Reset:       scrapeReset,
		CacheFile:   cfg.Scraper.CacheFile,
	})
	printScrapeSummary(log, report)

	if err != nil {
		log.Errorf("Scrape failed: %v", err)
		db.Close()
		closeLog()
		os.Exit(1)
	}

	// Store-wide totals are informational only
	summary, err := service.NewSummaryService(db).Summarize(context.WithoutCancel(ctx))
	if err != nil {
		log.Warningf("Failed to summarize store: %v", err)
	} else {
		log.Info("=== Store ===")
		log.Infof("Total draws:      %d", summary.TotalDraws)
		log.Infof("Lotto types:      %d", summary.LottoTypes)
		log.Infof("Date range:       %s .. %s", summary.EarliestDraw, summary.LatestDraw)
	}

	if report.Cancelled {
		log.Info("Scrape cancelled")
		db.Close()
		closeLog()
		os.Exit(1)
	}
}

func printScrapeSummary(log *logger.Logger, report *service.RunReport) {
	if report == nil {
		return
	}

	log.Info("=== Scrape Summary ===")
	if report.Replayed {
		log.Info("Source:           cached crawl")
	} else {
		log.Infof("Start page:       %d", report.StartPage)
		log.Infof("Pages processed:  %d (%d failed)", report.PagesProcessed, report.FailedPages)
	}
	log.Infof("Draws scraped:    %d", report.Scraped)
	log.Infof("Inserted:         %d", report.Ingest.Inserted)
	log.Infof("Skipped:          %d", report.Ingest.Skipped)
	log.Infof("Errors:           %d", report.Ingest.Errors)
	if report.StateSaved {
		log.Infof("Next run starts:  page %d", report.NextPage)
	} else {
		log.Info("Scraper state:    unchanged")
	}
}
