// Package tasks implements C12: an in-memory background task manager for
// long-running bulk operations (auto-ingest runs, bulk analysis, bulk
// save) that must not block the HTTP request that kicked them off.
// Nothing here is durable across a process restart (spec §6.1's task
// rows are a runtime view, not a persisted table).
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// ProgressFunc lets a running task report how far it's gotten; Manager
// folds updates into the task's Progress/ProcessedItems/CurrentItem
// fields without the caller touching core.BackgroundTask directly.
type ProgressFunc func(processed int, current string)

// Func is the body of a background task. It must watch ctx for
// cancellation; a result is stored verbatim into BackgroundTask.Result.
type Func func(ctx context.Context, progress ProgressFunc) (any, error)

type queuedRun struct {
	ctx context.Context
	id  string
	fn  Func
}

// Manager tracks every created task and runs at most maxConcurrent of
// them at once; Run beyond that limit is queued rather than dropped, so
// a caller never has to poll and resubmit (a deliberate improvement over
// the "log a warning and do nothing" original, whose queued task would
// otherwise sit pending forever).
type Manager struct {
	mu            sync.Mutex
	tasks         map[string]*core.BackgroundTask
	cancels       map[string]context.CancelFunc
	queue         []queuedRun
	running       int
	maxConcurrent int
}

func New(maxConcurrentTasks int) *Manager {
	if maxConcurrentTasks <= 0 {
		maxConcurrentTasks = 3
	}
	return &Manager{
		tasks:         make(map[string]*core.BackgroundTask),
		cancels:       make(map[string]context.CancelFunc),
		maxConcurrent: maxConcurrentTasks,
	}
}

// Create registers a new pending task and returns its ID.
func (m *Manager) Create(name string, totalItems int, metadata map[string]any) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id] = &core.BackgroundTask{
		ID:         id,
		Name:       name,
		Status:     core.TaskStatusPending,
		CreatedAt:  time.Now(),
		TotalItems: totalItems,
		Metadata:   metadata,
	}
	return id
}

// Run starts fn for a previously created task, or queues it if
// maxConcurrent tasks are already running. Run returns immediately in
// either case; the caller polls Get for status.
func (m *Manager) Run(ctx context.Context, id string, fn Func) {
	m.mu.Lock()
	if _, ok := m.tasks[id]; !ok {
		m.mu.Unlock()
		logger.Warn("tasks: run called for unknown task", "task_id", id)
		return
	}
	if m.running >= m.maxConcurrent {
		m.queue = append(m.queue, queuedRun{ctx: ctx, id: id, fn: fn})
		m.mu.Unlock()
		logger.Info("tasks: max_concurrent_tasks reached, queuing task", "task_id", id)
		return
	}
	m.running++
	m.mu.Unlock()
	go m.execute(ctx, id, fn)
}

func (m *Manager) execute(parent context.Context, id string, fn Func) {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	task := m.tasks[id]
	m.cancels[id] = cancel
	started := time.Now()
	task.Status = core.TaskStatusRunning
	task.StartedAt = &started
	m.mu.Unlock()

	logger.Info("tasks: starting task", "task_id", id, "name", task.Name)

	progress := func(processed int, current string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.ProcessedItems = processed
		task.CurrentItem = current
		if task.TotalItems > 0 {
			task.Progress = float64(processed) / float64(task.TotalItems) * 100
		}
	}

	result, err := fn(ctx, progress)

	m.mu.Lock()
	completed := time.Now()
	task.CompletedAt = &completed
	delete(m.cancels, id)

	switch {
	case ctx.Err() == context.Canceled:
		task.Status = core.TaskStatusCancelled
	case err != nil:
		task.Status = core.TaskStatusFailed
		task.Error = err.Error()
	default:
		task.Status = core.TaskStatusCompleted
		task.Result = result
		task.Progress = 100
	}

	m.running--
	var next *queuedRun
	if len(m.queue) > 0 {
		q := m.queue[0]
		m.queue = m.queue[1:]
		next = &q
		m.running++
	}
	m.mu.Unlock()

	cancel()

	logger.Info("tasks: finished task", "task_id", id, "status", string(task.Status))

	if next != nil {
		go m.execute(next.ctx, next.id, next.fn)
	}
}

// Get returns a copy of a task's current state.
func (m *Manager) Get(id string) (core.BackgroundTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return core.BackgroundTask{}, false
	}
	return *task, true
}

// List returns a snapshot of every task, optionally filtered by status,
// newest first.
func (m *Manager) List(status *core.TaskStatus) []core.BackgroundTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.BackgroundTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, *task)
	}
	sortByCreatedAtDesc(out)
	return out
}

func sortByCreatedAtDesc(tasks []core.BackgroundTask) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].CreatedAt.After(tasks[j-1].CreatedAt); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

// Cancel stops a running task via context cancellation, or removes a
// still-queued one before it ever starts. Reports false if the task is
// unknown or already finished.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.cancels[id]; ok {
		cancel()
		return true
	}

	for i, q := range m.queue {
		if q.id != id {
			continue
		}
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		if task, ok := m.tasks[id]; ok {
			now := time.Now()
			task.Status = core.TaskStatusCancelled
			task.CompletedAt = &now
		}
		return true
	}

	return false
}

// Summary counts tasks by status.
func (m *Manager) Summary() map[core.TaskStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[core.TaskStatus]int{
		core.TaskStatusPending:   0,
		core.TaskStatusRunning:   0,
		core.TaskStatusCompleted: 0,
		core.TaskStatusFailed:    0,
		core.TaskStatusCancelled: 0,
	}
	for _, task := range m.tasks {
		counts[task.Status]++
	}
	return counts
}

// Cleanup drops completed/failed/cancelled tasks older than maxAge.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, task := range m.tasks {
		if !isTerminal(task.Status) {
			continue
		}
		if task.CreatedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("tasks: cleaned up old tasks", "count", removed)
	}
	return removed
}

func isTerminal(s core.TaskStatus) bool {
	return s == core.TaskStatusCompleted || s == core.TaskStatusFailed || s == core.TaskStatusCancelled
}
