package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID(time.Date(2026, 10, 17, 9, 5, 3, 0, time.UTC))
	assert.Regexp(t, `^session_20261017_090503_[a-z0-9]{6}$`, id)
	assert.True(t, ValidID(id))
	assert.NotEqual(t, id, NewID(time.Date(2026, 10, 17, 9, 5, 3, 0, time.UTC)))
	assert.False(t, ValidID("../../etc/passwd"))
}

func TestStore_SaveLoadList(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	older := models.NewSessionRecord(NewID(base), models.SearchCriteria{Keywords: []string{"go"}}, base)
	older.Results.ProcessedCVIDs = append(older.Results.ProcessedCVIDs, "1", "2")
	newer := models.NewSessionRecord(NewID(base.Add(time.Hour)), models.SearchCriteria{Keywords: []string{"rust"}}, base.Add(time.Hour))

	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))
	require.NotNil(t, older.SavedAt)

	loaded, err := store.Load(older.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Processed("2"))
	assert.Equal(t, []string{"go"}, loaded.Criteria.Keywords)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("session_20260101_000000_abcdef")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Load("not-an-id")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Cleanup(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	now := time.Now()

	old := models.NewSessionRecord(NewID(now.AddDate(0, 0, -10)), models.SearchCriteria{}, now)
	fresh := models.NewSessionRecord(NewID(now), models.SearchCriteria{}, now)
	require.NoError(t, store.Save(old))
	require.NoError(t, store.Save(fresh))
	stale := now.AddDate(0, 0, -8)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old.ID+".json"), stale, stale))

	removed, err := store.Cleanup(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load(old.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.Load(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_ListEmptyDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))
	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}
