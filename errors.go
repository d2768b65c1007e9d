package taskpool

import (
	"errors"
	"fmt"
)

var (
	ErrPoolClosed      = errors.New("pool is closed")
	ErrNilFunc         = errors.New("task function cannot be nil")
	ErrDetached        = errors.New("result discarded for detached task")
	ErrMemoryExhausted = errors.New("memory pool exhausted")
	ErrKeyNotFound     = errors.New("checkpoint key not found")
	ErrFeederStopped   = errors.New("feeder already stopped")
	ErrNoFutures       = errors.New("no futures to wait on")
)

// TaskError wraps an error produced by a task function, preserving the
// identity of the task that failed.
type TaskError struct {
	ID   string
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s): %v", e.Name, e.ID, e.Err)
}

// Unwrap returns the underlying task failure.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// DependencyError marks a task that was never executed because one of its
// dependencies failed. It wraps the upstream failure, so errors.Is and
// errors.As reach through to the root cause.
type DependencyError struct {
	ID   string // id of the failed upstream task
	Name string // name of the failed upstream task
	Err  error  // the upstream task's error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s (%s) failed: %v", e.Name, e.ID, e.Err)
}

// Unwrap returns the upstream task's error.
func (e *DependencyError) Unwrap() error {
	return e.Err
}

// PanicError is the error captured when a task function panics. The stack
// is that of the panic location, not where the panic was collected.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the error passed to panic, or nil if panic was called
// with something other than an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
