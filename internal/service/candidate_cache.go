package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jjenkins/lottosync/internal/model"
)

// candidateFile is the on-disk layout of the saved crawl output
type candidateFile struct {
	SavedAt time.Time             `json:"savedAt"`
	Draws   []model.CandidateDraw `json:"draws"`
}

// SaveCandidates writes draws to path, replacing any previous file atomically
func SaveCandidates(path string, draws []model.CandidateDraw) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(candidateFile{SavedAt: time.Now().UTC(), Draws: draws}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write candidates: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace candidates file: %w", err)
	}
	return nil
}

// LoadCandidates reads a saved crawl. ok is false when no file exists.
func LoadCandidates(path string) (draws []model.CandidateDraw, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read candidates: %w", err)
	}

	var file candidateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, false, fmt.Errorf("failed to decode candidates %s: %w", path, err)
	}
	return file.Draws, true, nil
}
