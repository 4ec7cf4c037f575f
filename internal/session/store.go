package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

var idPattern = regexp.MustCompile(`^session_\d{8}_\d{6}_[a-z0-9]{6}$`)

// NewID returns session_YYYYMMDD_HHMMSS_xxxxxx.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("session_%s_%s", now.Format("20060102_150405"), suffix)
}

func ValidID(id string) bool { return idPattern.MatchString(id) }

// Store keeps one <id>.json per session for resuming and listing.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save stamps saved_at and writes the record.
func (s *Store) Save(rec *models.SessionRecord) error {
	if !ValidID(rec.ID) {
		return fmt.Errorf("invalid session id %q", rec.ID)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	saved := s.now().UTC()
	rec.SavedAt = &saved

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	slog.Debug("💾 session saved", "id", rec.ID)
	return nil
}

func (s *Store) Load(id string) (*models.SessionRecord, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var rec models.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every stored session, newest first. Unreadable files are
// skipped with a warning.
func (s *Store) List() ([]*models.SessionRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*models.SessionRecord
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || !ValidID(id) {
			continue
		}
		rec, err := s.Load(id)
		if err != nil {
			slog.Warn("skipping unreadable session", "id", id, "err", err)
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Statistics.StartTime.After(out[j].Statistics.StartTime)
	})
	return out, nil
}

// Cleanup removes session files not modified within olderThan and returns how
// many were deleted.
func (s *Store) Cleanup(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || !ValidID(id) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			slog.Warn("could not remove old session", "id", id, "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("🧹 removed old sessions", "count", removed)
	}
	return removed, nil
}
