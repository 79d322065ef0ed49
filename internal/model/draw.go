package model

import (
	"database/sql"
	"time"

	"github.com/jjenkins/lottosync/internal/drawdate"
)

// SourceTheB2BLotto tags draws scraped from the upstream results site
const SourceTheB2BLotto = "theb2blotto"

// Number bounds for winning and machine numbers
const (
	MinNumber = 1
	MaxNumber = 90
)

// Metadata keys stamped by the row parser
const (
	MetaScrapedAt    = "scrapedAt"
	MetaOriginalDate = "originalDate"
	MetaPage         = "page"
)

// CandidateDraw is a parsed draw that has not been persisted yet
type CandidateDraw struct {
	DrawDate       drawdate.Date     `json:"drawDate"`
	LottoType      string            `json:"lottoType"`
	WinningNumbers []int             `json:"winningNumbers"`
	MachineNumbers []int             `json:"machineNumbers"`
	Source         string            `json:"source"`
	Metadata       map[string]string `json:"metadata"`
}

// Draw represents a persisted draw row
type Draw struct {
	ID             int64
	DrawDate       string // canonical YYYY-MM-DD for rows written by the ingestor
	LottoType      string
	WinningNumbers []int
	MachineNumbers []int
	Source         sql.NullString
	Metadata       map[string]string
	PublishedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToDraw converts a candidate into its persistence form
func (c CandidateDraw) ToDraw() *Draw {
	return &Draw{
		DrawDate:       c.DrawDate.String(),
		LottoType:      c.LottoType,
		WinningNumbers: c.WinningNumbers,
		MachineNumbers: c.MachineNumbers,
		Source:         sql.NullString{String: c.Source, Valid: c.Source != ""},
		Metadata:       c.Metadata,
	}
}

// ScraperState is the resume record kept between crawl runs
type ScraperState struct {
	LastPage       int       `json:"lastPage"`
	LastScrapeDate time.Time `json:"lastScrapeDate"`
	TotalScraped   int       `json:"totalScraped"`
}

// DrawFilter narrows a draw search
type DrawFilter struct {
	LottoType string
	From      string
	To        string
	Number    int
	Limit     int
	Offset    int
}

// Search page sizes
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// Normalized returns f with Limit and Offset clamped to the values a search
// actually uses.
func (f DrawFilter) Normalized() DrawFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// InRange reports whether n is a valid draw number
func InRange(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}
