package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scrape_sessions (
  id          TEXT PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  keywords    TEXT NOT NULL DEFAULT '',
  location    TEXT NOT NULL DEFAULT '',
  attempted   INTEGER NOT NULL DEFAULT 0,
  succeeded   INTEGER NOT NULL DEFAULT 0,
  failed      INTEGER NOT NULL DEFAULT 0,
  success     BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS candidates (
  cv_id             TEXT PRIMARY KEY,
  session_id        TEXT NOT NULL,
  name              TEXT NOT NULL DEFAULT '',
  profile_url       TEXT NOT NULL DEFAULT '',
  location          TEXT NOT NULL DEFAULT '',
  current_job_title TEXT NOT NULL DEFAULT '',
  email             TEXT NOT NULL DEFAULT '',
  completeness      DOUBLE PRECISION NOT NULL DEFAULT 0,
  file_path         TEXT NOT NULL DEFAULT '',
  extracted_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_session ON candidates(session_id);
`

// Repository is the Postgres index, for teams sharing one database.
type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// PgBouncer in transaction mode cannot hold prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &Repository{db: pool}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	return nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, postgresSchema)
	return err
}

// ---------------- SESSION OPERATIONS ----------------

func (r *Repository) SaveSession(ctx context.Context, s models.IndexedSession) error {
	query := `
		INSERT INTO scrape_sessions (id, started_at, finished_at, keywords, location, attempted, succeeded, failed, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET finished_at = EXCLUDED.finished_at, attempted = EXCLUDED.attempted,
			succeeded = EXCLUDED.succeeded, failed = EXCLUDED.failed, success = EXCLUDED.success`

	_, err := r.db.Exec(ctx, query, s.ID, s.StartedAt, s.FinishedAt, s.Keywords, s.Location,
		s.Attempted, s.Succeeded, s.Failed, s.Success)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *Repository) ListSessions(ctx context.Context, limit int) ([]models.IndexedSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, started_at, finished_at, keywords, location, attempted, succeeded, failed, success
		FROM scrape_sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.IndexedSession, error) {
		var s models.IndexedSession
		err := row.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Keywords, &s.Location,
			&s.Attempted, &s.Succeeded, &s.Failed, &s.Success)
		return s, err
	})
}

func (r *Repository) GetSession(ctx context.Context, id string) (*models.IndexedSession, error) {
	var s models.IndexedSession
	err := r.db.QueryRow(ctx, `
		SELECT id, started_at, finished_at, keywords, location, attempted, succeeded, failed, success
		FROM scrape_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Keywords, &s.Location,
			&s.Attempted, &s.Succeeded, &s.Failed, &s.Success)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ---------------- CANDIDATE OPERATIONS ----------------

func (r *Repository) SaveCandidate(ctx context.Context, c models.IndexedCandidate) error {
	query := `
		INSERT INTO candidates (cv_id, session_id, name, profile_url, location, current_job_title, email, completeness, file_path, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cv_id)
		DO UPDATE SET session_id = EXCLUDED.session_id, name = EXCLUDED.name, profile_url = EXCLUDED.profile_url,
			location = EXCLUDED.location, current_job_title = EXCLUDED.current_job_title, email = EXCLUDED.email,
			completeness = EXCLUDED.completeness, file_path = EXCLUDED.file_path, extracted_at = EXCLUDED.extracted_at`

	_, err := r.db.Exec(ctx, query, c.CVID, c.SessionID, c.Name, c.ProfileURL, c.Location,
		c.CurrentJobTitle, c.Email, c.Completeness, c.FilePath, c.ExtractedAt)
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	return nil
}

func (r *Repository) CandidateSeen(ctx context.Context, cvID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM candidates WHERE cv_id = $1)`, cvID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up candidate: %w", err)
	}
	return exists, nil
}
