package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jjenkins/lottosync/internal/model"
)

// DefaultStateKey is the scraper_state row used by the draw crawler
const DefaultStateKey = "draws"

// StateStore persists the crawler's resume record as a single row
type StateStore struct {
	db  *DB
	key string
}

// NewStateStore creates a new StateStore for the given key
func NewStateStore(db *DB, key string) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateStore{db: db, key: key}
}

// Load returns the saved state, or the zero state if none was saved
func (s *StateStore) Load(ctx context.Context) (model.ScraperState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM scraper_state WHERE key = $1", s.key).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.ScraperState{}, nil
	}
	if err != nil {
		return model.ScraperState{}, fmt.Errorf("failed to load scraper state: %w", err)
	}

	var state model.ScraperState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.ScraperState{}, fmt.Errorf("failed to decode scraper state: %w", err)
	}
	return state, nil
}

// Save upserts the state row
func (s *StateStore) Save(ctx context.Context, state model.ScraperState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode scraper state: %w", err)
	}

	query := `
		INSERT INTO scraper_state (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.key, string(value)); err != nil {
		return fmt.Errorf("failed to save scraper state: %w", err)
	}
	return nil
}

// Reset removes the saved state so the next run starts from page 1
func (s *StateStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM scraper_state WHERE key = $1", s.key); err != nil {
		return fmt.Errorf("failed to reset scraper state: %w", err)
	}
	return nil
}
