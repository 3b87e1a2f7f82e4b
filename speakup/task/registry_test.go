package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeitchaccha/speakup/speakup/dialogue"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(maxTasks int) (*MemoryRegistry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewMemoryRegistry(time.Hour, maxTasks)
	r.now = clock.Now
	return r, clock
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRegistry(10)

	created, err := r.Create(ctx, "ordering at a restaurant", 3)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, 0, created.Progress)
	assert.Nil(t, created.Result)
	assert.Equal(t, clock.Now(), created.UpdatedAt)

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	other, err := r.Create(ctx, "ordering at a restaurant", 3)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestGetUnknown(t *testing.T) {
	r, _ := newTestRegistry(10)
	_, err := r.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Update(context.Background(), "does-not-exist", StatusRunning), ErrNotFound)
}

func TestGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(10)
	created, err := r.Create(ctx, "topic", 1)
	require.NoError(t, err)
	require.NoError(t, r.Update(ctx, created.ID, StatusRunning))
	require.NoError(t, r.Update(ctx, created.ID, StatusCompleted, WithResult(&Result{
		Topic:    "topic",
		Dialogue: []dialogue.Line{{Speaker: "A", Target: "Hi"}},
	})))

	snapshot, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	snapshot.Result.Dialogue[0].Target = "mutated"
	snapshot.Progress = 1

	again, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", again.Result.Dialogue[0].Target)
	assert.Equal(t, 100, again.Progress)
}

func TestTransitions(t *testing.T) {
	testcases := []struct {
		name    string
		path    []Status
		next    Status
		wantErr bool
	}{
		{name: "pending to running", next: StatusRunning},
		{name: "pending to failed", next: StatusFailed},
		{name: "pending to completed", next: StatusCompleted, wantErr: true},
		{name: "running to completed", path: []Status{StatusRunning}, next: StatusCompleted},
		{name: "running to failed", path: []Status{StatusRunning}, next: StatusFailed},
		{name: "running to running", path: []Status{StatusRunning}, next: StatusRunning},
		{name: "running back to pending", path: []Status{StatusRunning}, next: StatusPending, wantErr: true},
		{name: "completed is terminal", path: []Status{StatusRunning, StatusCompleted}, next: StatusRunning, wantErr: true},
		{name: "completed twice", path: []Status{StatusRunning, StatusCompleted}, next: StatusCompleted, wantErr: true},
		{name: "failed is terminal", path: []Status{StatusFailed}, next: StatusCompleted, wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			r, _ := newTestRegistry(10)
			created, err := r.Create(ctx, "topic", 1)
			require.NoError(t, err)
			for _, status := range tc.path {
				require.NoError(t, r.Update(ctx, created.ID, status))
			}

			err = r.Update(ctx, created.ID, tc.next)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRegistry(10)
	created, err := r.Create(ctx, "topic", 1)
	require.NoError(t, err)

	progressOf := func() int {
		got, err := r.Get(ctx, created.ID)
		require.NoError(t, err)
		return got.Progress
	}

	clock.Advance(time.Second)
	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(40)))
	assert.Equal(t, 40, progressOf())

	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(10)))
	assert.Equal(t, 40, progressOf(), "progress never decreases")

	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(100)))
	assert.Equal(t, 99, progressOf(), "100 is reserved for completed tasks")

	result := &Result{Topic: "topic", Filename: "learn_topic.html", URL: "/generated/learn_topic.html"}
	require.NoError(t, r.Update(ctx, created.ID, StatusCompleted, WithResult(result)))

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, result, got.Result)
	assert.Equal(t, clock.Now(), got.UpdatedAt)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestFailedKeepsMessage(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(10)
	created, err := r.Create(ctx, "topic", 1)
	require.NoError(t, err)

	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(10)))
	require.NoError(t, r.Update(ctx, created.ID, StatusFailed, WithError("API call failed: invalid api key")))

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "API call failed: invalid api key", got.Error)
	assert.Equal(t, 10, got.Progress)
	assert.Nil(t, got.Result)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRegistry(10)

	old, err := r.Create(ctx, "old", 1)
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)
	fresh, err := r.Create(ctx, "fresh", 1)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	removed, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = r.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSweepUsesLastUpdate(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRegistry(10)

	created, err := r.Create(ctx, "slow", 1)
	require.NoError(t, err)
	clock.Advance(50 * time.Minute)
	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(40)))
	clock.Advance(50 * time.Minute)

	removed, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRegistryFull(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRegistry(2)

	for i := 0; i < 2; i++ {
		_, err := r.Create(ctx, fmt.Sprintf("topic %d", i), 1)
		require.NoError(t, err)
	}
	_, err := r.Create(ctx, "one too many", 1)
	assert.ErrorIs(t, err, ErrRegistryFull)

	// expired tasks are swept before the bound is checked
	clock.Advance(2 * time.Hour)
	_, err = r.Create(ctx, "after sweep", 1)
	assert.NoError(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(time.Hour, 1000)

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := r.Create(ctx, "topic", 2)
			if !assert.NoError(t, err) {
				return
			}
			ids <- created.ID
			for p := 10; p <= 90; p += 10 {
				assert.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(p)))
				_, err := r.Get(ctx, created.ID)
				assert.NoError(t, err)
			}
			assert.NoError(t, r.Update(ctx, created.ID, StatusCompleted))
		}()
	}
	wg.Wait()
	close(ids)

	for id := range ids {
		got, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
	}
}
