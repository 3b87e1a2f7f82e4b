// Package task tracks asynchronous generation jobs so clients can poll them.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/makeitchaccha/speakup/speakup/dialogue"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrRegistryFull      = errors.New("task registry is full")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a task in s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusRunning || next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Result is what a completed task produced.
type Result struct {
	Topic    string             `json:"topic"`
	Dialogue []dialogue.Line    `json:"dialogue"`
	Keywords []dialogue.Keyword `json:"keywords"`
	Filename string             `json:"filename"`
	URL      string             `json:"url"`
}

type Task struct {
	ID        string    `json:"task_id"`
	Topic     string    `json:"topic"`
	Exchanges int       `json:"num_exchanges"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    *Result   `json:"result"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// clone returns a copy that shares nothing mutable with t.
func (t Task) clone() Task {
	if t.Result != nil {
		result := *t.Result
		result.Dialogue = append([]dialogue.Line(nil), t.Result.Dialogue...)
		result.Keywords = append([]dialogue.Keyword(nil), t.Result.Keywords...)
		t.Result = &result
	}
	return t
}

type update struct {
	progress *int
	result   *Result
	errMsg   *string
}

type UpdateOption func(*update)

func WithProgress(progress int) UpdateOption {
	return func(u *update) {
		u.progress = &progress
	}
}

func WithResult(result *Result) UpdateOption {
	return func(u *update) {
		u.result = result
	}
}

func WithError(msg string) UpdateOption {
	return func(u *update) {
		u.errMsg = &msg
	}
}

// apply mutates t in place. Progress only moves forward and reaches 100
// only together with StatusCompleted.
func apply(t *Task, status Status, now time.Time, opts []UpdateOption) error {
	if !t.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}

	var u update
	for _, opt := range opts {
		opt(&u)
	}

	progress := t.Progress
	if u.progress != nil && *u.progress > progress {
		progress = *u.progress
	}
	if status == StatusCompleted {
		progress = 100
	} else if progress >= 100 {
		progress = 99
	}

	t.Status = status
	t.Progress = progress
	if u.result != nil {
		t.Result = u.result
	}
	if u.errMsg != nil {
		t.Error = *u.errMsg
	}
	t.UpdatedAt = now
	return nil
}
