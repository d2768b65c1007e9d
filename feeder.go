package taskpool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FeederConfig describes a periodic submission loop.
type FeederConfig struct {
	// Interval between submissions. Required.
	Interval time.Duration

	// Fn is submitted once per tick. Required.
	Fn TaskFunc

	// Name labels the submitted tasks. Empty derives it from Fn.
	Name string

	// Produce builds the argument list for each tick, starting at tick 0.
	// Returning false stops the feeder without submitting. Nil means every
	// tick submits Fn with no arguments and the feeder runs until stopped.
	Produce func(tick int) ([]any, bool)

	// Detach submits each task fire-and-forgotten.
	Detach bool

	// OnFuture observes each submitted future, called from the feeder
	// goroutine. Optional.
	OnFuture func(*Future)
}

// Feeder submits a task to a pool at a fixed interval until it is stopped,
// its producer runs dry, or its context ends. Unlike a bare loop it has an
// explicit off switch: Stop wins against a due tick, so no task is
// submitted after the stop signal is observed.
type Feeder struct {
	pool *Pool
	cfg  FeederConfig

	stopOnce sync.Once
	stop     chan struct{}
}

// NewFeeder validates cfg and builds a feeder bound to pool. The loop does
// not start until Run is called.
func NewFeeder(pool *Pool, cfg FeederConfig) (*Feeder, error) {
	if pool == nil {
		return nil, fmt.Errorf("feeder needs a pool")
	}
	if cfg.Fn == nil {
		return nil, ErrNilFunc
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("feeder interval must be positive, got %s", cfg.Interval)
	}
	return &Feeder{
		pool: pool,
		cfg:  cfg,
		stop: make(chan struct{}),
	}, nil
}

// Run submits one task per interval in the calling goroutine. It returns
// nil when stopped or when Produce runs dry, ctx.Err() when the context
// ends, and ErrFeederStopped when called on a feeder that was already
// stopped.
func (f *Feeder) Run(ctx context.Context) error {
	select {
	case <-f.stop:
		return ErrFeederStopped
	default:
	}

	tick := 0
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		// A stop that raced the tick wins; the tick is dropped.
		select {
		case <-f.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		args, more := f.produce(tick)
		if !more {
			return nil
		}
		fut := f.pool.SubmitSpec(TaskSpec{
			Name:   f.cfg.Name,
			Fn:     f.cfg.Fn,
			Args:   args,
			Detach: f.cfg.Detach,
		})
		if f.cfg.OnFuture != nil {
			f.cfg.OnFuture(fut)
		}
		tick++
	}
}

// Stop signals the feeder to exit. It is safe to call from any goroutine
// and more than once; tasks already submitted are unaffected.
func (f *Feeder) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *Feeder) produce(tick int) ([]any, bool) {
	if f.cfg.Produce == nil {
		return nil, true
	}
	return f.cfg.Produce(tick)
}
