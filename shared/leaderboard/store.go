package leaderboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rohit-710/wallet-bounce/shared/protocol"
)

// Store keeps a Board as one JSON array on disk, named after the browser key
// the web build used.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, protocol.LeaderboardKey+".json")}
}

func (s *Store) Path() string { return s.path }

// Load reads the board. A missing file is an empty board; so is a corrupt
// one, which is logged and discarded.
func (s *Store) Load() *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() *Board {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return New()
	}
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("leaderboard unreadable, starting empty")
		return New()
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("leaderboard corrupt, resetting")
		return New()
	}
	return FromEntries(list)
}

func (s *Store) Save(b *Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(b)
}

func (s *Store) save(b *Board) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create leaderboard dir: %w", err)
	}
	data, err := json.MarshalIndent(b.Entries(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write leaderboard: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename leaderboard file: %w", err)
	}
	return nil
}

// Update loads the board, applies fn and saves the result. Nothing is written
// when fn returns an error.
func (s *Store) Update(fn func(*Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.load()
	if err := fn(b); err != nil {
		return err
	}
	return s.save(b)
}
