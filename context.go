package taskpool

import (
	"context"
)

// TaskInfo identifies the task a function invocation belongs to. It is
// placed on the context of every task execution, so middleware and task
// functions can label their own logs and errors.
type TaskInfo struct {
	ID   string
	Name string
}

// NoDevice is the Device value of workers that are not bound to an
// accelerator.
const NoDevice = -1

// WorkerInfo describes the worker executing the current task: its index in
// the pool, the accelerator device it is bound to (NoDevice when unbound),
// and its memory ledger (unlimited when the pool sets no MemoryPoolSize).
type WorkerInfo struct {
	Index  int
	Device int
	Memory *MemoryPool
}

type taskInfoKey struct{}
type workerInfoKey struct{}

func withTaskInfo(ctx context.Context, info TaskInfo) context.Context {
	return context.WithValue(ctx, taskInfoKey{}, info)
}

func withWorkerInfo(ctx context.Context, w *WorkerInfo) context.Context {
	return context.WithValue(ctx, workerInfoKey{}, w)
}

// TaskInfoFromContext returns the identity of the task the context belongs
// to. The second return is false outside task executions.
func TaskInfoFromContext(ctx context.Context) (TaskInfo, bool) {
	info, ok := ctx.Value(taskInfoKey{}).(TaskInfo)
	return info, ok
}

// WorkerFromContext returns the worker executing the current task. The
// second return is false outside task executions.
func WorkerFromContext(ctx context.Context) (*WorkerInfo, bool) {
	w, ok := ctx.Value(workerInfoKey{}).(*WorkerInfo)
	return w, ok
}
