package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("dispatcher is stopped")
)

type Runner interface {
	Run(ctx context.Context, job Job)
}

type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Dispatcher runs jobs on a fixed number of workers fed by a bounded queue.
type Dispatcher struct {
	runner     Runner
	queue      chan Job
	workers    int
	jobTimeout time.Duration

	mu      sync.RWMutex
	started bool
	stopped bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(runner Runner, cfg DispatcherConfig) *Dispatcher {
	workers := max(cfg.Workers, 1)
	queueSize := max(cfg.QueueSize, 1)
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		runner:     runner,
		queue:      make(chan Job, queueSize),
		workers:    workers,
		jobTimeout: cfg.JobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
	slog.Info("Dispatcher started", slog.Int("workers", d.workers), slog.Int("queue", cap(d.queue)))
}

// Submit enqueues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- job:
		slog.Debug("Enqueued job", slog.String("task", job.TaskID), slog.Int("queued", len(d.queue)))
		return nil
	default:
		slog.Warn("Failed to enqueue job, queue is full", slog.String("task", job.TaskID))
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for queued and running ones. When ctx
// ends first, running jobs are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		slog.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		slog.Warn("Dispatcher stopped before all jobs finished")
		return ctx.Err()
	}
}

func (d *Dispatcher) workerLoop(id int) {
	defer d.wg.Done()
	for job := range d.queue {
		d.runJob(id, job)
	}
}

func (d *Dispatcher) runJob(worker int, job Job) {
	ctx := d.ctx
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}

	slog.Debug("Running job", slog.Int("worker", worker), slog.String("task", job.TaskID))
	d.runner.Run(ctx, job)
}
