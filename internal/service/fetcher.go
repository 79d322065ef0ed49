package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/logger"
)

const (
	DefaultBaseURL   = "https://www.theb2blotto.com/ajax/get_latest_results.php"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinRequestDelay is the floor for the pause before each request.
	// Shorter gaps get the crawler blocked upstream.
	MinRequestDelay = 2 * time.Second
	defaultTimeout  = 30 * time.Second
)

// PageFetcher returns the HTML fragment for a results page, or false on any failure
type PageFetcher interface {
	Fetch(ctx context.Context, page int) (string, bool)
}

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	BaseURL    string
	UserAgent  string
	Delay      time.Duration
	Timeout    time.Duration
	Classifier Classifier
}

// Fetcher issues one delayed GET per results page
type Fetcher struct {
	http       *resty.Client
	baseURL    string
	delay      time.Duration
	classifier Classifier
	log        *logger.Logger
}

// NewFetcher creates a Fetcher. Zero options fall back to the production
// endpoint, a 30s timeout and the heuristic classifier. The delay is used as
// given so tests can run without waiting; callers wiring real crawls should
// pass at least MinRequestDelay.
func NewFetcher(opts FetcherOptions, log *logger.Logger) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Classifier == nil {
		opts.Classifier = NewHeuristicClassifier()
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "text/html,*/*;q=0.8")
	client.SetHeader("X-Requested-With", "XMLHttpRequest")

	return &Fetcher{
		http:       client,
		baseURL:    opts.BaseURL,
		delay:      opts.Delay,
		classifier: opts.Classifier,
		log:        log,
	}
}

// Delay returns the configured pause before each request
func (f *Fetcher) Delay() time.Duration {
	return f.delay
}

// Fetch waits the configured delay, requests ?pn=page and classifies the
// response. Timeouts, bad statuses, block pages and malformed bodies all
// come back as ("", false). Cancelling ctx interrupts the delay but not a
// request already in flight.
func (f *Fetcher) Fetch(ctx context.Context, page int) (string, bool) {
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false
		case <-timer.C:
		}
	}

	// Once sent, a request runs to completion or the client timeout;
	// cancellation is only observed between pages.
	res, err := f.http.R().
		SetContext(context.WithoutCancel(ctx)).
		SetQueryParam("pn", strconv.Itoa(page)).
		Get(f.baseURL)
	if err != nil {
		f.log.Warningf("Page %d: request failed: %v", page, err)
		return "", false
	}

	body := res.String()
	verdict := f.classifier.Classify(res.StatusCode(), body)
	switch verdict {
	case VerdictOK:
		return body, true
	case VerdictBlocked:
		f.log.Warningf("Page %d: response looks like an anti-bot challenge (HTTP %d)", page, res.StatusCode())
	default:
		f.log.Infof("Page %d: unusable response (%s, HTTP %d)", page, verdict, res.StatusCode())
	}
	return "", false
}
