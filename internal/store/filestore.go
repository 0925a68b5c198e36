// Package store persists room state as one JSON file per room. Writes are
// fire-and-forget from the caller's point of view; a failed or partial
// write is logged and the in-memory state stays authoritative.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/models"
)

// FileStore reads and writes <dataDir>/<roomID>.json.
type FileStore struct {
	dataDir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (s *FileStore) path(roomID string) string {
	return filepath.Join(s.dataDir, roomID+".json")
}

// Load returns the persisted state for a room, or nil when none exists.
// A corrupt file is logged and treated as absent.
func (s *FileStore) Load(roomID string) (*models.PersistedState, error) {
	data, err := os.ReadFile(s.path(roomID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read room file: %w", err)
	}

	var state models.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("corrupt room file, starting empty")
		return nil, nil
	}
	return &state, nil
}

// Save writes the persisted state for a room. Last writer wins; no atomic
// rename is attempted.
func (s *FileStore) Save(roomID string, state *models.PersistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}
	if err := os.WriteFile(s.path(roomID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write room file: %w", err)
	}
	return nil
}
