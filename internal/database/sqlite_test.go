package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Index = (*SQLiteIndex)(nil)
	_ Index = (*Repository)(nil)
)

func openTestIndex(t *testing.T) Index {
	t.Helper()
	idx, err := Open(context.Background(), config.IndexConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "nested", "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_Sessions(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	first := models.IndexedSession{ID: "session_a", StartedAt: start, FinishedAt: start.Add(time.Minute), Keywords: "go", Attempted: 2, Succeeded: 1, Failed: 1}
	second := models.IndexedSession{ID: "session_b", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(2 * time.Hour), Keywords: "rust", Success: true}
	require.NoError(t, idx.SaveSession(ctx, first))
	require.NoError(t, idx.SaveSession(ctx, second))

	first.Succeeded, first.Success = 2, true
	require.NoError(t, idx.SaveSession(ctx, first), "saving again updates the row")

	list, err := idx.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "session_b", list[0].ID)
	assert.True(t, list[0].StartedAt.Equal(second.StartedAt))

	got, err := idx.GetSession(ctx, "session_a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Succeeded)
	assert.True(t, got.Success)

	_, err = idx.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteIndex_CandidateUpsert(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)

	seen, err := idx.CandidateSeen(ctx, "123")
	require.NoError(t, err)
	assert.False(t, seen)

	c := models.IndexedCandidate{CVID: "123", SessionID: "s1", Name: "Jane", ExtractedAt: time.Now()}
	require.NoError(t, idx.SaveCandidate(ctx, c))
	c.SessionID = "s2"
	require.NoError(t, idx.SaveCandidate(ctx, c))

	seen, err = idx.CandidateSeen(ctx, "123")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestOpen_None(t *testing.T) {
	idx, err := Open(context.Background(), config.IndexConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, idx)

	_, err = Open(context.Background(), config.IndexConfig{Driver: "mongo"})
	assert.Error(t, err)
}
