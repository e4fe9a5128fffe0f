// Package settings holds the mutable, validated runtime configuration of the
// moderation gateway: media size limits, queue capacity, cleanup window, and
// the moderator/admin roster.
//
// Settings are loaded once at startup (best-effort, defaulting on any read
// failure), mutated in memory by admin actions, and written back to disk only
// on an explicit save. In-memory changes are live immediately but survive a
// restart only if saved.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Settings is the persisted record. It is read at startup and written
// wholesale on save; partial updates are not supported.
type Settings struct {
	MaxPhotoSizeMB       int     `json:"maxPhotoSizeMB"`
	MaxVideoSizeMB       int     `json:"maxVideoSizeMB"`
	MaxPendingPosts      int     `json:"maxPendingPosts"`
	CleanupIntervalHours int     `json:"cleanupIntervalHours"`
	Moderators           []int64 `json:"moderators"`
	Admins               []int64 `json:"admins"`
}

// numeric field names, matching the JSON keys of the persisted record
const (
	FieldMaxPhotoSizeMB       = "maxPhotoSizeMB"
	FieldMaxVideoSizeMB       = "maxVideoSizeMB"
	FieldMaxPendingPosts      = "maxPendingPosts"
	FieldCleanupIntervalHours = "cleanupIntervalHours"
)

type bounds struct {
	min, max int
}

var fieldBounds = map[string]bounds{
	FieldMaxPhotoSizeMB:       {1, 100},
	FieldMaxVideoSizeMB:       {1, 500},
	FieldMaxPendingPosts:      {10, 1000},
	FieldCleanupIntervalHours: {1, 720},
}

// FieldBounds returns the valid inclusive range for a numeric settings field.
func FieldBounds(field string) (min, max int, ok bool) {
	b, ok := fieldBounds[field]
	return b.min, b.max, ok
}

func Defaults() Settings {
	return Settings{
		MaxPhotoSizeMB:       10,
		MaxVideoSizeMB:       50,
		MaxPendingPosts:      100,
		CleanupIntervalHours: 24,
	}
}

// Store owns the runtime configuration. All reads return value copies; all
// mutations are serialized through the store's lock.
type Store struct {
	logger *slog.Logger
	path   string

	mu  sync.RWMutex
	cur Settings
}

func NewStore(logger *slog.Logger, path string) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With("component", "settings"),
		path:   path,
		cur:    Defaults(),
	}
}

// Load reads the persisted record. Best-effort: a missing, unreadable, or
// corrupt file keeps defaults and is never fatal.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("no settings file, using defaults", "path", s.path)
		return nil
	} else if err != nil {
		s.logger.Warn("failed to read settings file, using defaults", "path", s.path, "err", err)
		return nil
	}
	var loaded Settings
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logger.Warn("failed to parse settings file, using defaults", "path", s.path, "err", err)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = loaded
	s.normalizeLocked()
	s.logger.Info("settings loaded", "path", s.path,
		"moderators", len(s.cur.Moderators), "admins", len(s.cur.Admins))
	return nil
}

// Save writes the whole record back to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.cur, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			s.logger.Error("failed to create settings directory", "path", dir, "err", err)
			return err
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		s.logger.Error("failed to save settings", "path", s.path, "err", err)
		return err
	}
	s.logger.Info("settings saved", "path", s.path)
	return nil
}

// Get returns a snapshot copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cur
	out.Moderators = append([]int64(nil), s.cur.Moderators...)
	out.Admins = append([]int64(nil), s.cur.Admins...)
	return out
}

// SetField updates one numeric field in memory. The value must be inside the
// field's valid range.
func (s *Store) SetField(field string, value int) error {
	min, max, ok := FieldBounds(field)
	if !ok {
		return fmt.Errorf("unknown settings field: %s", field)
	}
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d", field, min, max)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch field {
	case FieldMaxPhotoSizeMB:
		s.cur.MaxPhotoSizeMB = value
	case FieldMaxVideoSizeMB:
		s.cur.MaxVideoSizeMB = value
	case FieldMaxPendingPosts:
		s.cur.MaxPendingPosts = value
	case FieldCleanupIntervalHours:
		s.cur.CleanupIntervalHours = value
	}
	s.logger.Info("settings field updated", "field", field, "value", value)
	return nil
}

// QueueLimits satisfies the queue's limit source: live capacity and cleanup
// window derived from the current settings.
func (s *Store) QueueLimits() (maxItems int, maxAge time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.MaxPendingPosts, time.Duration(s.cur.CleanupIntervalHours) * time.Hour
}

// normalizeLocked backfills zero-valued numeric fields with defaults, so a
// hand-edited or older settings file cannot zero out a limit.
func (s *Store) normalizeLocked() {
	def := Defaults()
	if s.cur.MaxPhotoSizeMB <= 0 {
		s.cur.MaxPhotoSizeMB = def.MaxPhotoSizeMB
	}
	if s.cur.MaxVideoSizeMB <= 0 {
		s.cur.MaxVideoSizeMB = def.MaxVideoSizeMB
	}
	if s.cur.MaxPendingPosts <= 0 {
		s.cur.MaxPendingPosts = def.MaxPendingPosts
	}
	if s.cur.CleanupIntervalHours <= 0 {
		s.cur.CleanupIntervalHours = def.CleanupIntervalHours
	}
}
