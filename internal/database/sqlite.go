package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-cvlibrary-scraper/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
  id          TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  keywords    TEXT NOT NULL DEFAULT '',
  location    TEXT NOT NULL DEFAULT '',
  attempted   INTEGER NOT NULL DEFAULT 0,
  succeeded   INTEGER NOT NULL DEFAULT 0,
  failed      INTEGER NOT NULL DEFAULT 0,
  success     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS candidates (
  cv_id             TEXT PRIMARY KEY,
  session_id        TEXT NOT NULL,
  name              TEXT NOT NULL DEFAULT '',
  profile_url       TEXT NOT NULL DEFAULT '',
  location          TEXT NOT NULL DEFAULT '',
  current_job_title TEXT NOT NULL DEFAULT '',
  email             TEXT NOT NULL DEFAULT '',
  completeness      REAL NOT NULL DEFAULT 0,
  file_path         TEXT NOT NULL DEFAULT '',
  extracted_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_session ON candidates(session_id);
`

// SQLiteIndex is the default, file-backed index.
type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteIndex, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite index %s: %w", path, err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (s *SQLiteIndex) SaveSession(ctx context.Context, in models.IndexedSession) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, started_at, finished_at, keywords, location, attempted, succeeded, failed, success)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  finished_at = excluded.finished_at, attempted = excluded.attempted,
  succeeded = excluded.succeeded, failed = excluded.failed, success = excluded.success;`,
		in.ID, formatTime(in.StartedAt), formatTime(in.FinishedAt), in.Keywords, in.Location,
		in.Attempted, in.Succeeded, in.Failed, in.Success,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", in.ID, err)
	}
	return nil
}

func (s *SQLiteIndex) SaveCandidate(ctx context.Context, c models.IndexedCandidate) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO candidates (cv_id, session_id, name, profile_url, location, current_job_title, email, completeness, file_path, extracted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cv_id) DO UPDATE SET
  session_id = excluded.session_id, name = excluded.name, profile_url = excluded.profile_url,
  location = excluded.location, current_job_title = excluded.current_job_title, email = excluded.email,
  completeness = excluded.completeness, file_path = excluded.file_path, extracted_at = excluded.extracted_at;`,
		c.CVID, c.SessionID, c.Name, c.ProfileURL, c.Location, c.CurrentJobTitle, c.Email,
		c.Completeness, c.FilePath, formatTime(c.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("save candidate %s: %w", c.CVID, err)
	}
	return nil
}

const sqliteSessionColumns = `id, started_at, finished_at, keywords, location, attempted, succeeded, failed, success`

func (s *SQLiteIndex) ListSessions(ctx context.Context, limit int) ([]models.IndexedSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.IndexedSession
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) GetSession(ctx context.Context, id string) (*models.IndexedSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSQLiteSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

func (s *SQLiteIndex) CandidateSeen(ctx context.Context, cvID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM candidates WHERE cv_id = ? LIMIT 1`, cvID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup candidate %s: %w", cvID, err)
	}
	return true, nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row scanner) (*models.IndexedSession, error) {
	var (
		sess              models.IndexedSession
		started, finished string
	)
	if err := row.Scan(&sess.ID, &started, &finished, &sess.Keywords, &sess.Location,
		&sess.Attempted, &sess.Succeeded, &sess.Failed, &sess.Success); err != nil {
		return nil, err
	}
	sess.StartedAt = parseTime(started)
	sess.FinishedAt = parseTime(finished)
	return &sess, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
