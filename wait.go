package taskpool

import "context"

// Summary is the outcome of a Wait call. Every waited future lands in
// exactly one bucket: Finished holds tasks that produced a value, Failed
// holds tasks whose error was captured, including tasks that never ran
// because a dependency failed (their Err is a *DependencyError).
type Summary struct {
	Finished []*Future
	Failed   []*Future
}

// Wait blocks until every future reaches a terminal state, then reports how
// many finished and how many failed. It never fails because a task failed;
// the only error it returns is ctx's, and in that case the summary covers
// just the futures that settled before the cutoff.
//
// Nil futures are skipped.
func Wait(ctx context.Context, futures ...*Future) (Summary, error) {
	var s Summary
	for _, f := range futures {
		if f == nil {
			continue
		}
		// Prefer classifying an already-settled future over reporting a
		// cancelled context, so results stay deterministic.
		select {
		case <-f.Done():
		default:
			select {
			case <-f.Done():
			case <-ctx.Done():
				return s, ctx.Err()
			}
		}
		if f.Err() != nil {
			s.Failed = append(s.Failed, f)
		} else {
			s.Finished = append(s.Finished, f)
		}
	}
	return s, nil
}

// WaitAny blocks until any one of the futures reaches a terminal state and
// returns it; the winner may be a failed future. With no non-nil futures it
// returns ErrNoFutures rather than blocking forever.
func WaitAny(ctx context.Context, futures ...*Future) (*Future, error) {
	settled := make(chan *Future, len(futures))
	n := 0
	for _, f := range futures {
		if f == nil {
			continue
		}
		n++
		f := f
		go func() {
			<-f.Done()
			settled <- f
		}()
	}
	if n == 0 {
		return nil, ErrNoFutures
	}
	select {
	case f := <-settled:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Gather waits for all futures and returns their values in input order.
// The first failure in input order aborts the gather with that task's
// error; a detached future aborts it with ErrDetached, since its value was
// discarded. Nil futures yield nil values.
func Gather(ctx context.Context, futures ...*Future) ([]any, error) {
	if _, err := Wait(ctx, futures...); err != nil {
		return nil, err
	}
	vals := make([]any, len(futures))
	for i, f := range futures {
		if f == nil {
			continue
		}
		v, err := f.Result(ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
