package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/models"
)

var ErrNotFound = errors.New("not found in index")

// Index is a queryable record of sessions and the candidates they saved.
type Index interface {
	Migrate(ctx context.Context) error
	SaveSession(ctx context.Context, s models.IndexedSession) error
	// SaveCandidate inserts or replaces the row for the candidate's cv_id.
	SaveCandidate(ctx context.Context, c models.IndexedCandidate) error
	ListSessions(ctx context.Context, limit int) ([]models.IndexedSession, error)
	GetSession(ctx context.Context, id string) (*models.IndexedSession, error)
	CandidateSeen(ctx context.Context, cvID string) (bool, error)
	Close() error
}

// Open connects the configured driver and runs migrations. Driver "none"
// returns a nil Index and no error.
func Open(ctx context.Context, cfg config.IndexConfig) (Index, error) {
	var (
		idx Index
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return nil, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create index directory: %w", err)
			}
		}
		idx, err = OpenSQLite(ctx, cfg.DSN)
	case "postgres":
		idx, err = ConnectDB(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := idx.Migrate(ctx); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return idx, nil
}
