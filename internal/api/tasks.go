package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	ErrBusy         = errors.New("a scrape is already running")
	ErrTaskNotFound = errors.New("task not found")
)

type TaskStatus string

const (
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// RunFunc performs one scrape session.
type RunFunc func(ctx context.Context, criteria models.SearchCriteria) (*models.SessionRecord, error)

// Task is a background scrape started over HTTP.
type Task struct {
	ID         string                `json:"task_id"`
	Status     TaskStatus            `json:"status"`
	Criteria   models.SearchCriteria `json:"criteria"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Session    *models.SessionRecord `json:"session,omitempty"`
	Error      string                `json:"error,omitempty"`

	cancel context.CancelFunc
}

// TaskManager runs at most one scrape at a time; the browser is a single
// shared resource. Finished tasks stay queryable for an hour.
type TaskManager struct {
	mu       sync.Mutex
	run      RunFunc
	base     context.Context
	active   *Task
	finished *expirable.LRU[string, Task]
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewTaskManager(base context.Context, run RunFunc, retention time.Duration) *TaskManager {
	return &TaskManager{
		run:      run,
		base:     base,
		finished: expirable.NewLRU[string, Task](256, nil, retention),
		now:      time.Now,
	}
}

func (m *TaskManager) Start(criteria models.SearchCriteria) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return Task{}, ErrBusy
	}

	ctx, cancel := context.WithCancel(m.base)
	t := &Task{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		Criteria:  criteria,
		CreatedAt: m.now().UTC(),
		cancel:    cancel,
	}
	m.active = t

	m.wg.Add(1)
	go m.execute(ctx, t)
	slog.Info("🚀 scrape task started", "task", t.ID, "keywords", criteria.KeywordQuery())
	return *t, nil
}

func (m *TaskManager) execute(ctx context.Context, t *Task) {
	defer m.wg.Done()
	rec, err := m.run(ctx, t.Criteria)

	m.mu.Lock()
	defer m.mu.Unlock()
	t.cancel()
	finished := m.now().UTC()
	t.FinishedAt = &finished
	t.Session = rec
	switch {
	case t.Status == StatusCancelled:
	case err != nil:
		t.Status = StatusFailed
		t.Error = err.Error()
	default:
		t.Status = StatusCompleted
	}
	m.finished.Add(t.ID, *t)
	m.active = nil
	slog.Info("🏁 scrape task finished", "task", t.ID, "status", t.Status)
}

func (m *TaskManager) Get(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.ID == id {
		return *m.active, nil
	}
	if t, ok := m.finished.Get(id); ok {
		return t, nil
	}
	return Task{}, ErrTaskNotFound
}

// Cancel stops the running task. The session it was building is still
// finalised by the runner.
func (m *TaskManager) Cancel(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.ID != id {
		if t, ok := m.finished.Get(id); ok {
			return t, nil
		}
		return Task{}, ErrTaskNotFound
	}
	m.active.Status = StatusCancelled
	m.active.cancel()
	return *m.active, nil
}

// Busy reports whether a task is running.
func (m *TaskManager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Wait blocks until every started task has returned.
func (m *TaskManager) Wait() {
	m.wg.Wait()
}
