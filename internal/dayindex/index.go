// Package dayindex persists the weekday to work-id index that scopes the
// frequent episode check to works airing today.
package dayindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"animetrack/internal/logging"
)

// Tokens are the index keys in broadcast order.
var Tokens = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Index maps a three-letter weekday token to work ids in schedule order.
type Index map[string][]int64

// Entry places one work on one day.
type Entry struct {
	Day    string
	WorkID int64
}

// New returns an index with every token present and empty.
func New() Index {
	idx := make(Index, len(Tokens))
	for _, token := range Tokens {
		idx[token] = []int64{}
	}
	return idx
}

// Build produces a fresh index from entries. Unknown tokens are dropped and
// a work listed twice on the same day keeps its first position.
func Build(entries []Entry) Index {
	idx := New()
	seen := make(map[Entry]struct{}, len(entries))
	for _, entry := range entries {
		if !ValidToken(entry.Day) {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		idx[entry.Day] = append(idx[entry.Day], entry.WorkID)
	}
	return idx
}

// ValidToken reports whether token is one of Tokens.
func ValidToken(token string) bool {
	for _, t := range Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// TokenFor returns the token for a weekday.
func TokenFor(day time.Weekday) string {
	return day.String()[:3]
}

// Today returns the token for the local weekday of now.
func Today(now time.Time) string {
	return TokenFor(now.Weekday())
}

// Count returns the number of entries across all days.
func (idx Index) Count() int {
	total := 0
	for _, ids := range idx {
		total += len(ids)
	}
	return total
}

// Store reads and writes the index document.
type Store struct {
	fs     afero.Fs
	path   string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewStore binds a store to a file path on the host filesystem.
func NewStore(path string, logger *slog.Logger) *Store {
	return NewStoreFs(afero.NewOsFs(), path, logger)
}

// NewStoreFs binds a store to a path on fsys.
func NewStoreFs(fsys afero.Fs, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{fs: fsys, path: path, logger: logging.NewComponentLogger(logger, "dayindex")}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the index. A missing file yields an empty index.
func (s *Store) Load() (Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read day index: %w", err)
	}
	if len(data) == 0 {
		return New(), nil
	}

	var raw Index
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse day index: %w", err)
	}
	idx := New()
	for _, token := range Tokens {
		if ids, ok := raw[token]; ok && ids != nil {
			idx[token] = ids
		}
	}
	return idx, nil
}

// Save replaces the index on disk atomically.
func (s *Store) Save(idx Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := New()
	for _, token := range Tokens {
		if ids := idx[token]; ids != nil {
			full[token] = ids
		}
	}
	data, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal day index: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create day index directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.Debug("saved day index",
		logging.Int("entry_count", full.Count()),
		logging.String("path", s.path))
	return nil
}
