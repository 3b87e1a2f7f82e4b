package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Registry interface {
	// Create registers a new pending task and returns it at once.
	Create(ctx context.Context, topic string, exchanges int) (Task, error)
	// Get returns a snapshot of the task.
	Get(ctx context.Context, id string) (Task, error)
	// Update moves the task to status and applies the options.
	Update(ctx context.Context, id string, status Status, opts ...UpdateOption) error
	// Sweep removes tasks that have not been updated within the retention window.
	Sweep(ctx context.Context) (int, error)
}

var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry keeps tasks in a map guarded by one mutex. Tasks are lost on restart.
type MemoryRegistry struct {
	mu        sync.Mutex
	tasks     map[string]*Task
	retention time.Duration
	maxTasks  int
	now       func() time.Time
}

func NewMemoryRegistry(retention time.Duration, maxTasks int) *MemoryRegistry {
	return &MemoryRegistry{
		tasks:     make(map[string]*Task),
		retention: retention,
		maxTasks:  maxTasks,
		now:       time.Now,
	}
}

func (r *MemoryRegistry) Create(_ context.Context, topic string, exchanges int) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	if r.maxTasks > 0 && len(r.tasks) >= r.maxTasks {
		return Task{}, ErrRegistryFull
	}

	now := r.now()
	t := &Task{
		ID:        uuid.NewString(),
		Topic:     topic,
		Exchanges: exchanges,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.tasks[t.ID] = t
	return t.clone(), nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t.clone(), nil
}

func (r *MemoryRegistry) Update(_ context.Context, id string, status Status, opts ...UpdateOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	return apply(t, status, r.now(), opts)
}

func (r *MemoryRegistry) Sweep(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(), nil
}

func (r *MemoryRegistry) sweepLocked() int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.retention)
	removed := 0
	for id, t := range r.tasks {
		if t.UpdatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("swept expired tasks", slog.Int("removed", removed), slog.Int("remaining", len(r.tasks)))
	}
	return removed
}
