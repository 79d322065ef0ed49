package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jjenkins/lottosync/internal/model"
	"github.com/lib/pq"
)

// Batch is an open write transaction over the draws table
type Batch interface {
	// InsertDraw inserts d unless a row with the same (draw_date, lotto_type)
	// exists. A failed row is rolled back to its savepoint so the batch
	// stays usable.
	InsertDraw(ctx context.Context, d *model.Draw) (inserted bool, err error)
	Commit() error
	Rollback() error
}

// DrawStore handles database operations for draws
type DrawStore struct {
	db *DB
}

// NewDrawStore creates a new DrawStore
func NewDrawStore(db *DB) *DrawStore {
	return &DrawStore{db: db}
}

// BeginBatch opens a write transaction for one ingest batch
func (s *DrawStore) BeginBatch(ctx context.Context) (Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &drawBatch{tx: tx}, nil
}

type drawBatch struct {
	tx *sql.Tx
}

func (b *drawBatch) InsertDraw(ctx context.Context, d *model.Draw) (bool, error) {
	metadata, err := encodeMetadata(d.Metadata)
	if err != nil {
		return false, err
	}

	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT draw_row"); err != nil {
		return false, fmt.Errorf("failed to open savepoint: %w", err)
	}

	query := `
		INSERT INTO draws (draw_date, lotto_type, winning_numbers, machine_numbers, source, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (draw_date, lotto_type) DO NOTHING
	`

	res, err := b.tx.ExecContext(ctx, query,
		d.DrawDate,
		d.LottoType,
		toArray(d.WinningNumbers),
		toArray(d.MachineNumbers),
		d.Source,
		metadata,
	)
	if err != nil {
		for _, stmt := range []string{"ROLLBACK TO SAVEPOINT draw_row", "RELEASE SAVEPOINT draw_row"} {
			if _, rbErr := b.tx.ExecContext(ctx, stmt); rbErr != nil {
				return false, fmt.Errorf("failed to insert draw %s/%s: %v (savepoint rollback: %w)", d.DrawDate, d.LottoType, err, rbErr)
			}
		}
		return false, fmt.Errorf("failed to insert draw %s/%s: %w", d.DrawDate, d.LottoType, err)
	}

	if _, err := b.tx.ExecContext(ctx, "RELEASE SAVEPOINT draw_row"); err != nil {
		return false, fmt.Errorf("failed to release savepoint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (b *drawBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *drawBatch) Rollback() error {
	return b.tx.Rollback()
}

// ListAll retrieves every draw ordered by id, without timestamps
func (s *DrawStore) ListAll(ctx context.Context) ([]model.Draw, error) {
	query := `
		SELECT id, draw_date, lotto_type, winning_numbers, machine_numbers, source
		FROM draws
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		var d model.Draw
		var winning, machine pq.Int64Array
		err := rows.Scan(
			&d.ID,
			&d.DrawDate,
			&d.LottoType,
			&winning,
			&machine,
			&d.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		d.WinningNumbers = fromArray(winning)
		d.MachineNumbers = fromArray(machine)
		draws = append(draws, d)
	}

	return draws, rows.Err()
}

// Search retrieves draws matching the filter, newest first
func (s *DrawStore) Search(ctx context.Context, f model.DrawFilter) ([]model.Draw, error) {
	f = f.Normalized()

	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.LottoType != "" {
		where = append(where, "lotto_type = "+arg(f.LottoType))
	}
	if f.From != "" {
		where = append(where, "draw_date >= "+arg(f.From))
	}
	if f.To != "" {
		where = append(where, "draw_date <= "+arg(f.To))
	}
	if f.Number > 0 {
		if s.db.Dialect == SQLite {
			p := arg(fmt.Sprintf("%%,%d,%%", f.Number))
			where = append(where, "(',' || trim(winning_numbers, '{}') || ',' LIKE "+p+
				" OR ',' || trim(machine_numbers, '{}') || ',' LIKE "+p+")")
		} else {
			p := arg(f.Number)
			where = append(where, "("+p+" = ANY(winning_numbers) OR "+p+" = ANY(machine_numbers))")
		}
	}


	query := `
		SELECT id, draw_date, lotto_type, winning_numbers, machine_numbers,
		       source, metadata, published_at, created_at, updated_at
		FROM draws
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY draw_date DESC, id DESC LIMIT %d OFFSET %d", f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		d, err := scanFullDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, *d)
	}

	return draws, rows.Err()
}

// Latest retrieves the most recent draw, optionally for one lotto type
func (s *DrawStore) Latest(ctx context.Context, lottoType string) (*model.Draw, error) {
	draws, err := s.Search(ctx, model.DrawFilter{LottoType: lottoType, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, nil
	}
	return &draws[0], nil
}

// Count returns the total number of draws
func (s *DrawStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM draws").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return count, nil
}

// ApplyDedup deletes duplicate rows and rewrites surviving dates in one transaction.
// Deletes run first so a rewrite never collides with a row about to be removed.
func (s *DrawStore) ApplyDedup(ctx context.Context, deletes []int64, rewrites map[int64]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM draws WHERE id = $1", id); err != nil {
			return fmt.Errorf("failed to delete draw %d: %w", id, err)
		}
	}

	for id, date := range rewrites {
		query := `UPDATE draws SET draw_date = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
		if _, err := tx.ExecContext(ctx, query, date, id); err != nil {
			return fmt.Errorf("failed to rewrite date of draw %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanFullDraw(rows *sql.Rows) (*model.Draw, error) {
	var d model.Draw
	var winning, machine pq.Int64Array
	var metadata []byte
	var publishedAt, createdAt, updatedAt time.Time
	err := rows.Scan(
		&d.ID,
		&d.DrawDate,
		&d.LottoType,
		&winning,
		&machine,
		&d.Source,
		&metadata,
		&publishedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan draw: %w", err)
	}

	d.WinningNumbers = fromArray(winning)
	d.MachineNumbers = fromArray(machine)
	d.PublishedAt = publishedAt
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of draw %d: %w", d.ID, err)
		}
	}

	return &d, nil
}

// encodeMetadata renders metadata as a JSON string; jsonb rejects pq's bytea encoding of []byte
func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func toArray(nums []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(nums))
	for _, n := range nums {
		arr = append(arr, int64(n))
	}
	return arr
}

func fromArray(arr pq.Int64Array) []int {
	nums := make([]int, 0, len(arr))
	for _, n := range arr {
		nums = append(nums, int(n))
	}
	return nums
}
