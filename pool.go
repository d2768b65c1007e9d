package taskpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Pool executes tasks on a fixed set of workers.
//
// Tasks are submitted as functions plus arguments. Arguments that are
// *Future values make the task depend on the tasks that produced them: the
// pool holds the task until every dependency succeeds, substitutes the
// produced values into the argument list, and hands the task to a free
// worker. If any dependency fails, the task never runs and its future fails
// with a *DependencyError.
//
// Submission never blocks; the ready queue is unbounded. Every submission
// is an independent unit of work with a fresh ID, so submitting the same
// function twice runs it twice.
type Pool struct {
	cfg    Config
	logger Logger
	queue  *queue

	workers []*WorkerInfo

	mwMu sync.RWMutex
	mws  []Middleware

	mu     sync.Mutex
	closed bool

	inflight sync.WaitGroup // accepted tasks not yet terminal
	workerWG sync.WaitGroup // live worker goroutines

	submitted    atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	propagated   atomic.Int64
	running      atomic.Int32
	detachedLive atomic.Int32
}

// New builds a pool from cfg and starts its workers. Missing fields are
// filled with defaults (see Config) before validation.
func New(cfg Config) (*Pool, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}
	logger := cfg.Logger.With(Field{Key: "component", Value: "taskpool"})
	cfg.warnHostMemory(logger)

	p := &Pool{
		cfg:    cfg,
		logger: logger,
		queue:  newQueue(),
	}

	p.workers = make([]*WorkerInfo, cfg.Workers)
	for i := range p.workers {
		device := NoDevice
		if len(cfg.Devices) > 0 {
			device = cfg.Devices[i]
		}
		p.workers[i] = &WorkerInfo{
			Index:  i,
			Device: device,
			Memory: NewMemoryPool(cfg.MemoryPoolSize),
		}
	}
	for _, w := range p.workers {
		p.workerWG.Add(1)
		go p.runWorker(w)
	}

	p.logger.Info(context.Background(), "pool started",
		Field{Key: "workers", Value: cfg.Workers},
		Field{Key: "devices", Value: cfg.Devices},
	)
	return p, nil
}

// Submit schedules fn(args...) and returns its future immediately. Any
// *Future among args is a dependency: the task waits for it and receives
// the produced value in its place.
//
// Submit never blocks. Errors that prevent scheduling (nil fn, closed pool)
// surface on the returned future, not here.
func (p *Pool) Submit(fn TaskFunc, args ...any) *Future {
	return p.SubmitSpec(TaskSpec{Fn: fn, Args: args})
}

// SubmitSpec is Submit with per-task controls: a label for logs and errors,
// a timeout override, and the option to detach the task at birth.
func (p *Pool) SubmitSpec(spec TaskSpec) *Future {
	p.submitted.Add(1)

	name := spec.Name
	if name == "" {
		name = funcName(spec.Fn)
	}
	f := newFuture(newTaskID(), name, p)
	if spec.Detach {
		p.detachFuture(f)
	}

	if spec.Fn == nil {
		return p.rejectFuture(f, ErrNilFunc)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.rejectFuture(f, ErrPoolClosed)
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	t := &task{
		id:      f.id,
		name:    name,
		fn:      spec.Fn,
		args:    spec.Args,
		timeout: spec.Timeout,
		future:  f,
	}
	if t.timeout == 0 {
		t.timeout = time.Duration(p.cfg.TaskTimeout)
	}
	p.mwMu.RLock()
	t.mws = p.mws
	p.mwMu.RUnlock()

	deps := dependencies(spec.Args)
	if len(deps) == 0 {
		p.enqueue(t)
		return f
	}

	t.waiting.Store(int32(len(deps)))
	for _, dep := range deps {
		dep := dep
		dep.whenDone(func() { p.depDone(t, dep) })
	}
	return f
}

// Map submits fn once per input and returns the futures in input order.
func (p *Pool) Map(fn TaskFunc, inputs []any) []*Future {
	futures := make([]*Future, len(inputs))
	for i, in := range inputs {
		futures[i] = p.Submit(fn, in)
	}
	return futures
}

// Use appends middleware to the pool's chain. Middleware wraps every task
// submitted after the call, outermost first; tasks already submitted keep
// the chain they were born with.
func (p *Pool) Use(mws ...Middleware) {
	p.mwMu.Lock()
	defer p.mwMu.Unlock()
	next := make([]Middleware, 0, len(p.mws)+len(mws))
	next = append(next, p.mws...)
	next = append(next, mws...)
	p.mws = next
}

// FireAndForget marks futures as detached: the caller will not collect
// their results, so the pool discards values on completion and logs
// failures instead of handing them back. Detached tasks still run to
// completion, and Close waits for them like any other task.
//
// Detaching an already-finished future releases its value; its error, if
// any, stays readable. Futures owned by another pool are forwarded to it.
func (p *Pool) FireAndForget(futures ...*Future) {
	for _, f := range futures {
		if f == nil {
			continue
		}
		owner := f.owner
		if owner == nil {
			owner = p
		}
		owner.detachFuture(f)
	}
}

func (p *Pool) detachFuture(f *Future) {
	if !f.detach() {
		return
	}
	p.detachedLive.Add(1)
	p.logger.Debug(context.Background(), "task detached",
		Field{Key: "task_id", Value: f.ID()},
		Field{Key: "task", Value: f.Name()},
	)
}

// Close stops accepting submissions, waits for every accepted task to reach
// a terminal state (including detached tasks and tasks still waiting on
// dependencies), then stops the workers. Calling Close again returns
// ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	p.queue.close()
	p.workerWG.Wait()

	p.logger.Info(context.Background(), "pool closed",
		Field{Key: "submitted", Value: p.submitted.Load()},
		Field{Key: "succeeded", Value: p.succeeded.Load()},
		Field{Key: "failed", Value: p.failed.Load()},
	)
	return nil
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int { return len(p.workers) }

// rejectFuture fails a future that never became a task. The submission
// still shows up in the failure counters.
func (p *Pool) rejectFuture(f *Future, err error) *Future {
	p.failed.Add(1)
	_, detached := f.complete(nil, err)
	if detached {
		p.detachedLive.Add(-1)
		p.warnDetachedFailure(f.id, f.name, err)
	}
	return f
}

// depDone handles one resolved dependency of t. A failed dependency fails t
// immediately and leaves the waiting count untouched, so t can never reach
// the queue afterwards; a succeeded one brings t closer to ready.
func (p *Pool) depDone(t *task, dep *Future) {
	if err := dep.Err(); err != nil {
		p.finishTask(t, nil, &DependencyError{ID: dep.ID(), Name: dep.Name(), Err: err}, true)
		return
	}
	if t.waiting.Add(-1) == 0 {
		p.enqueue(t)
	}
}

func (p *Pool) enqueue(t *task) {
	t.future.setStatus(TaskStatusQueued)
	depth := p.queue.push(t)
	// Warn once per crossing, not on every push past the line.
	if p.cfg.QueueWarnDepth > 0 && depth == p.cfg.QueueWarnDepth {
		p.logger.Warn(context.Background(), "ready queue depth reached warning threshold",
			Field{Key: "depth", Value: depth},
			Field{Key: "workers", Value: len(p.workers)},
		)
	}
}

// finishTask settles an accepted task exactly once: it completes the
// future, updates the counters, and releases the task's slot in the
// drain accounting. Later calls for the same task are no-ops, which makes
// racing dependency failures safe.
func (p *Pool) finishTask(t *task, val any, err error, viaDependency bool) {
	performed, detached := t.future.complete(val, err)
	if !performed {
		return
	}
	if err != nil {
		p.failed.Add(1)
		if viaDependency {
			p.propagated.Add(1)
		}
		if detached {
			p.warnDetachedFailure(t.id, t.name, err)
		}
	} else {
		p.succeeded.Add(1)
	}
	if detached {
		p.detachedLive.Add(-1)
	}
	p.inflight.Done()
}

// warnDetachedFailure is the only trace a failed fire-and-forget task
// leaves behind.
func (p *Pool) warnDetachedFailure(id, name string, err error) {
	p.logger.Warn(context.Background(), "detached task failed",
		Field{Key: "task_id", Value: id},
		Field{Key: "task", Value: name},
		Field{Key: "error", Value: err.Error()},
	)
}
