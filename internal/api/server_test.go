package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// blockingRun stays running until released or cancelled.
type blockingRun struct {
	release chan struct{}
	started chan struct{}
}

func newBlockingRun() *blockingRun {
	return &blockingRun{release: make(chan struct{}), started: make(chan struct{}, 4)}
}

func (b *blockingRun) run(ctx context.Context, c models.SearchCriteria) (*models.SessionRecord, error) {
	b.started <- struct{}{}
	rec := models.NewSessionRecord("session_20261017_090000_abcdef", c, time.Now())
	select {
	case <-b.release:
		rec.Success = true
		return rec, nil
	case <-ctx.Done():
		return rec, ctx.Err()
	}
}

func newTestServer(t *testing.T, run RunFunc, store *session.Store) (*TaskManager, http.Handler) {
	t.Helper()
	tm := NewTaskManager(context.Background(), run, time.Hour)
	if store == nil {
		store = session.NewStore(t.TempDir())
	}
	srv := NewServer(Options{Tasks: tm, Sessions: store, Version: "test"})
	return tm, srv.Router()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) Task {
	t.Helper()
	var task Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func TestHealthEndpoints(t *testing.T) {
	_, h := newTestServer(t, newBlockingRun().run, nil)

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)
}

func TestReadinessFailure(t *testing.T) {
	tm := NewTaskManager(context.Background(), newBlockingRun().run, time.Hour)
	srv := NewServer(Options{Tasks: tm, Sessions: session.NewStore(t.TempDir()), Ready: func(context.Context) error {
		return errors.New("credentials missing")
	}})

	w := do(srv.Router(), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "credentials missing")
}

func TestScrapeLifecycle(t *testing.T) {
	br := newBlockingRun()
	tm, h := newTestServer(t, br.run, nil)

	w := do(h, http.MethodPost, "/scrapes", `{"keywords":["python"],"quantity":3}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	task := decodeTask(t, w)
	assert.Equal(t, StatusRunning, task.Status)
	<-br.started

	w = do(h, http.MethodPost, "/scrapes", `{"keywords":["go"]}`)
	assert.Equal(t, http.StatusConflict, w.Code, "only one scrape at a time")

	close(br.release)
	tm.Wait()

	w = do(h, http.MethodGet, "/scrapes/"+task.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	done := decodeTask(t, w)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.Session)
	assert.True(t, done.Session.Success)

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/scrapes", `{"keywords":["go"]}`).Code, "free again")
}

func TestScrapeCancel(t *testing.T) {
	br := newBlockingRun()
	tm, h := newTestServer(t, br.run, nil)

	task := decodeTask(t, do(h, http.MethodPost, "/scrapes", `{"keywords":["python"]}`))
	<-br.started

	w := do(h, http.MethodDelete, "/scrapes/"+task.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	tm.Wait()

	got := decodeTask(t, do(h, http.MethodGet, "/scrapes/"+task.ID, ""))
	assert.Equal(t, StatusCancelled, got.Status)
	assert.NotNil(t, got.FinishedAt)
}

func TestScrapeValidation(t *testing.T) {
	_, h := newTestServer(t, newBlockingRun().run, nil)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/scrapes", `{"keywords":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/scrapes", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/scrapes/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/scrapes/nope", "").Code)
}

func TestSessionsEndpoints(t *testing.T) {
	store := session.NewStore(t.TempDir())
	rec := models.NewSessionRecord(session.NewID(time.Now()), models.SearchCriteria{Keywords: []string{"rust"}}, time.Now())
	rec.Success = true
	require.NoError(t, store.Save(rec))

	_, h := newTestServer(t, newBlockingRun().run, store)

	w := do(h, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Sessions []models.IndexedSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "rust", body.Sessions[0].Keywords)

	w = do(h, http.MethodGet, "/sessions/"+rec.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rec.ID)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/sessions/session_20200101_000000_zzzzzz", "").Code)
}
