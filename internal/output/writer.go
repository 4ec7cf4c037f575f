package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go-cvlibrary-scraper/internal/models"

	"github.com/gofrs/flock"
)

const lockFile = ".cvscraper.lock"

var ErrOutputLocked = errors.New("output directory is in use by another run")

// Writer stores one JSON file per candidate plus the session summary. It
// holds an OS file lock on the directory until Close.
type Writer struct {
	dir  string
	lock *flock.Flock
}

// Open creates dir if needed and takes its lock without waiting.
func Open(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, dir)
	}
	return &Writer{dir: dir, lock: lock}, nil
}

func (w *Writer) Dir() string { return w.dir }

// WriteCandidate writes candidate_<cv_id>_<unix>.json and returns its path.
func (w *Writer) WriteCandidate(rec *models.CandidateRecord) (string, error) {
	return w.writeJSON(rec.FileName(), rec)
}

// WriteSession writes session_summary_<session_id>.json.
func (w *Writer) WriteSession(rec *models.SessionRecord) (string, error) {
	return w.writeJSON(fmt.Sprintf("session_summary_%s.json", rec.ID), rec)
}

func (w *Writer) writeJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

func (w *Writer) Close() error {
	if w.lock == nil {
		return nil
	}
	err := w.lock.Unlock()
	_ = os.Remove(w.lock.Path())
	w.lock = nil
	return err
}
