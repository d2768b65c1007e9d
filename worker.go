package taskpool

import (
	"context"
	"runtime/debug"
)

// runWorker pulls ready tasks until the queue closes. Each worker holds one
// WorkerInfo for its lifetime: tasks running on it always see the same
// index, device, and memory ledger.
func (p *Pool) runWorker(w *WorkerInfo) {
	defer p.workerWG.Done()
	log := p.logger.With(
		Field{Key: "worker", Value: w.Index},
		Field{Key: "device", Value: w.Device},
	)
	log.Debug(context.Background(), "worker started")
	for {
		t, ok := p.queue.pop()
		if !ok {
			log.Debug(context.Background(), "worker stopped")
			return
		}
		p.runTask(w, t)
	}
}

// runTask executes one task on worker w and settles its future. Errors
// returned by the task function are wrapped in a *TaskError; a panic is
// captured as a *PanicError inside it, so a panicking task fails its future
// instead of killing the worker.
func (p *Pool) runTask(w *WorkerInfo, t *task) {
	t.future.setStatus(TaskStatusRunning)
	p.running.Add(1)
	defer p.running.Add(-1)

	ctx := withTaskInfo(context.Background(), TaskInfo{ID: t.id, Name: t.name})
	ctx = withWorkerInfo(ctx, w)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	fn := t.fn
	for i := len(t.mws) - 1; i >= 0; i-- {
		fn = t.mws[i](fn)
	}

	val, err := invoke(ctx, fn, resolvedArgs(t.args))
	if err != nil {
		err = &TaskError{ID: t.id, Name: t.name, Err: err}
	}
	p.finishTask(t, val, err, false)
}

func invoke(ctx context.Context, fn TaskFunc, args []any) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, args...)
}
