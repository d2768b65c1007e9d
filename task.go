package taskpool

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskFunc is the signature every submitted function must have. The args
// slice holds the already-resolved argument values: any *Future passed to
// Submit arrives here as the value the upstream task produced. The context
// carries the task and worker identity (see TaskInfoFromContext and
// WorkerFromContext) and is done when the task's timeout expires.
type TaskFunc func(ctx context.Context, args ...any) (any, error)

// TaskStatus represents the execution state of a task
type TaskStatus string

const (
	// TaskStatusPending means the task is waiting for dependencies to resolve.
	TaskStatusPending TaskStatus = "PENDING"
	// TaskStatusQueued means all dependencies resolved and the task is
	// waiting for a worker to claim it.
	TaskStatusQueued TaskStatus = "QUEUED"
	// TaskStatusRunning means a worker claimed the task.
	TaskStatusRunning TaskStatus = "RUNNING"
	// TaskStatusSucceeded means the task finished and its value is available.
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"
	// TaskStatusFailed means the task's error was captured, either from its
	// own execution or propagated from a failed dependency (in which case
	// the task never ran; its error is a *DependencyError).
	TaskStatusFailed TaskStatus = "FAILED"
)

// TaskSpec is the explicit form of a submission. Submit and Map are sugar
// over SubmitSpec for the common case.
type TaskSpec struct {
	// Name is a human-readable label used in errors, logs, and metrics.
	// Empty derives the label from the function's symbol name.
	Name string

	// Fn is the function to execute. Required.
	Fn TaskFunc

	// Args are passed to Fn after resolution. Any *Future among them
	// establishes a dependency edge on the task that produced it.
	Args []any

	// Timeout bounds the task context. Zero uses the pool default; the
	// function must honor its context for the bound to take effect.
	Timeout time.Duration

	// Detach submits the task already fire-and-forgotten.
	Detach bool
}

// task is the internal unit of scheduling: a spec bound to its future,
// with dependency bookkeeping. Identity is per-submission, never derived
// from the function or its arguments.
type task struct {
	id      string
	name    string
	fn      TaskFunc
	args    []any
	timeout time.Duration
	mws     []Middleware // middleware chain snapshotted at submission
	future  *Future

	// waiting counts unresolved dependencies. Each dependency callback
	// either decrements it (upstream succeeded) or fails the task
	// (upstream failed), so it can only reach zero when every
	// dependency succeeded.
	waiting atomic.Int32
}

func newTaskID() string {
	return uuid.New().String()
}

// funcName derives a task label from the function's symbol name, stripped
// of its package path. Anonymous functions come out as fn1, fn2, and so on.
func funcName(fn TaskFunc) string {
	if fn == nil {
		return "task"
	}
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return "task"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" {
		return "task"
	}
	return name
}

// dependencies returns the *Future arguments of the spec, in order.
func dependencies(args []any) []*Future {
	var deps []*Future
	for _, a := range args {
		if f, ok := a.(*Future); ok {
			deps = append(deps, f)
		}
	}
	return deps
}

// resolvedArgs copies args, substituting each *Future with the value its
// task produced. Callers must only invoke this once every dependency has
// succeeded.
func resolvedArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		if f, ok := a.(*Future); ok {
			out[i] = f.value()
			continue
		}
		out[i] = a
	}
	return out
}
