package taskpool

import (
	"context"
	"sync"
	"time"
)

// Future is the handle to a deferred computation's eventual value or
// failure. Futures are created by Submit and friends; passing one as an
// argument to a later submission establishes a dependency edge.
//
// A completed future that nobody references anymore is reclaimed by the
// garbage collector like any other value; the pool keeps no record of it.
// Detached futures (see Pool.FireAndForget) are the exception: the pool
// tracks them until completion so Close can account for them.
type Future struct {
	id    string
	name  string
	owner *Pool

	mu        sync.Mutex
	done      chan struct{}
	status    TaskStatus
	val       any
	err       error
	detached  bool
	callbacks []func()

	submitTime time.Time
	startTime  time.Time
	endTime    time.Time
}

func newFuture(id, name string, owner *Pool) *Future {
	return &Future{
		id:         id,
		name:       name,
		owner:      owner,
		done:       make(chan struct{}),
		status:     TaskStatusPending,
		submitTime: time.Now(),
	}
}

// ID returns the task's per-submission identity.
func (f *Future) ID() string { return f.id }

// Name returns the human-readable task label.
func (f *Future) Name() string { return f.name }

// Done returns a channel that closes when the task finishes or fails.
// It closes for detached futures too.
func (f *Future) Done() <-chan struct{} { return f.done }

// Status returns the task's current lifecycle state.
func (f *Future) Status() TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Detached reports whether the future was fire-and-forgotten.
func (f *Future) Detached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detached
}

// SubmitTime returns when the task was submitted.
func (f *Future) SubmitTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitTime
}

// StartTime returns when a worker claimed the task. It is zero while the
// task has not started and stays zero for tasks that never ran, such as
// rejected submissions and dependents of failed tasks.
func (f *Future) StartTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startTime
}

// EndTime returns when the task reached a terminal state, zero before that.
func (f *Future) EndTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endTime
}

// Duration returns how long the task ran. It is zero for tasks that never
// ran and for tasks that have not finished yet.
func (f *Future) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startTime.IsZero() || f.endTime.IsZero() {
		return 0
	}
	return f.endTime.Sub(f.startTime)
}

// Err returns the captured error for a failed task, without blocking.
// It returns nil while the task has not completed and for succeeded tasks.
// Failed-by-propagation tasks carry a *DependencyError.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Result blocks until the task completes or ctx is done, then returns the
// task's value. For failed tasks it returns the captured error. For
// detached tasks that succeeded the value has been discarded and Result
// returns ErrDetached.
func (f *Future) Result(ctx context.Context) (any, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.detached {
		return nil, ErrDetached
	}
	return f.val, nil
}

// value returns the raw result for dependency resolution. Only valid once
// the task has succeeded.
func (f *Future) value() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val
}

// complete transitions the future to its terminal state exactly once.
// performed reports whether this call did the transition; detached is the
// detach flag observed in the same critical section, so callers can settle
// fire-and-forget bookkeeping without racing a concurrent detach.
// Registered callbacks run after the done channel closes, outside the
// lock, in registration order.
func (f *Future) complete(val any, err error) (performed, detached bool) {
	f.mu.Lock()
	if f.isTerminal() {
		f.mu.Unlock()
		return false, false
	}
	if err != nil {
		f.status = TaskStatusFailed
		f.err = err
	} else {
		f.status = TaskStatusSucceeded
		if !f.detached {
			f.val = val
		}
	}
	f.endTime = time.Now()
	detached = f.detached
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
	return true, detached
}

// whenDone registers cb to run on completion, or runs it inline if the
// future already completed.
func (f *Future) whenDone(cb func()) {
	f.mu.Lock()
	if f.isTerminal() {
		f.mu.Unlock()
		cb()
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// detach marks the future fire-and-forgotten and reports whether it was
// still incomplete at that point. Detaching an already-succeeded future
// releases its value; a captured error stays available either way.
func (f *Future) detach() (incomplete bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detached {
		return false
	}
	f.detached = true
	if f.isTerminal() {
		f.val = nil
		return false
	}
	return true
}

// setStatus moves the future through its non-terminal states. It never
// overwrites a terminal state: a task failed by propagation stays failed.
// The transition to running stamps the start time.
func (f *Future) setStatus(s TaskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isTerminal() {
		return
	}
	f.status = s
	if s == TaskStatusRunning && f.startTime.IsZero() {
		f.startTime = time.Now()
	}
}

// isTerminal must be called with f.mu held.
func (f *Future) isTerminal() bool {
	return f.status == TaskStatusSucceeded || f.status == TaskStatusFailed
}
