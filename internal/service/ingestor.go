package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/model"
	"github.com/jjenkins/lottosync/internal/store"
)

// DefaultBatchSize is the number of draws written per transaction
const DefaultBatchSize = 100

// ErrBatchAborted wraps begin/commit failures; the batch was rolled back
var ErrBatchAborted = errors.New("batch aborted")

// BatchBeginner opens write transactions on the draw store
type BatchBeginner interface {
	BeginBatch(ctx context.Context) (store.Batch, error)
}

// IngestResult tracks ingest statistics. Inserted+Skipped+Errors equals the batch size.
type IngestResult struct {
	Inserted int
	Skipped  int
	Errors   int
}

// Add accumulates another result
func (r *IngestResult) Add(other IngestResult) {
	r.Inserted += other.Inserted
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}

// Total returns the number of draws accounted for
func (r IngestResult) Total() int {
	return r.Inserted + r.Skipped + r.Errors
}

// Ingestor persists candidate draws with per-row failure isolation
type Ingestor struct {
	store BatchBeginner
	log   *logger.Logger
}

// NewIngestor creates a new Ingestor
func NewIngestor(store BatchBeginner, log *logger.Logger) *Ingestor {
	return &Ingestor{store: store, log: log}
}

// Ingest writes draws in a single transaction. A row that fails is counted
// in Errors and the batch continues; a begin or commit failure rolls the
// whole batch back and is returned wrapped in ErrBatchAborted.
func (i *Ingestor) Ingest(ctx context.Context, draws []model.CandidateDraw) (IngestResult, error) {
	var result IngestResult

	batch, err := i.store.BeginBatch(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrBatchAborted, err)
	}
	// No-op once committed.
	defer batch.Rollback()

	for _, candidate := range draws {
		if err := validateCandidate(candidate); err != nil {
			i.log.Warningf("Rejected draw %s/%s: %v", candidate.DrawDate, candidate.LottoType, err)
			result.Errors++
			continue
		}

		inserted, err := batch.InsertDraw(ctx, candidate.ToDraw())
		if err != nil {
			i.log.Warningf("Failed to insert draw %s/%s: %v", candidate.DrawDate, candidate.LottoType, err)
			result.Errors++
			continue
		}

		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := batch.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrBatchAborted, err)
	}

	return result, nil
}

// IngestBatches splits draws into transactions of batchSize and stops at the
// first aborted batch. The returned result covers committed batches only.
func (i *Ingestor) IngestBatches(ctx context.Context, draws []model.CandidateDraw, batchSize int) (IngestResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total IngestResult
	for start := 0; start < len(draws); start += batchSize {
		end := min(start+batchSize, len(draws))

		result, err := i.Ingest(ctx, draws[start:end])
		if err != nil {
			return total, fmt.Errorf("draws %d-%d: %w", start+1, end, err)
		}
		total.Add(result)

		i.log.Infof("Batch %d-%d: %d inserted, %d skipped, %d errors",
			start+1, end, result.Inserted, result.Skipped, result.Errors)
	}

	return total, nil
}

func validateCandidate(c model.CandidateDraw) error {
	if c.DrawDate.IsZero() {
		return errors.New("missing draw date")
	}
	if len(c.WinningNumbers) == 0 {
		return errors.New("no winning numbers")
	}
	for _, n := range c.WinningNumbers {
		if !model.InRange(n) {
			return fmt.Errorf("winning number %d out of range", n)
		}
	}
	for _, n := range c.MachineNumbers {
		if !model.InRange(n) {
			return fmt.Errorf("machine number %d out of range", n)
		}
	}
	return nil
}
