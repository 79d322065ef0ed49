package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/lottosync/internal/store"
)

// SummaryService calculates store-wide totals
type SummaryService struct {
	db *store.DB
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(db *store.DB) *SummaryService {
	return &SummaryService{db: db}
}

// StoreSummary represents the current contents of the draws table
type StoreSummary struct {
	TotalDraws   int    `json:"totalDraws"`
	LottoTypes   int    `json:"lottoTypes"`
	EarliestDraw string `json:"earliestDraw,omitempty"`
	LatestDraw   string `json:"latestDraw,omitempty"`
	TopLottoType string `json:"topLottoType,omitempty"`
	TopTypeDraws int    `json:"topTypeDraws"`
}

// Summarize calculates the store summary
func (s *SummaryService) Summarize(ctx context.Context) (*StoreSummary, error) {
	summary := &StoreSummary{}

	totalsQuery := `
		SELECT
			COUNT(*) as total_draws,
			COUNT(DISTINCT lotto_type) as lotto_types,
			MIN(draw_date) as earliest,
			MAX(draw_date) as latest
		FROM draws
	`
	var earliest, latest sql.NullString
	err := s.db.QueryRowContext(ctx, totalsQuery).Scan(
		&summary.TotalDraws,
		&summary.LottoTypes,
		&earliest,
		&latest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate draw totals: %w", err)
	}
	summary.EarliestDraw = earliest.String
	summary.LatestDraw = latest.String

	// Find the lotto type with the most draws
	topQuery := `
		SELECT lotto_type, COUNT(*) as draws
		FROM draws
		GROUP BY lotto_type
		ORDER BY draws DESC, lotto_type
		LIMIT 1
	`
	err = s.db.QueryRowContext(ctx, topQuery).Scan(
		&summary.TopLottoType,
		&summary.TopTypeDraws,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find top lotto type: %w", err)
	}

	return summary, nil
}
