package taskpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait_SplitsFinishedAndFailed(t *testing.T) {
	pool, err := New(Config{Workers: 2, Logger: NewNopLogger()})
	assert.NoError(t, err)
	defer pool.Close()

	ok1 := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return 1, nil
	})
	ok2 := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return 2, nil
	})
	bad := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return nil, errors.New("boom")
	})
	propagated := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return nil, nil
	}, bad)

	summary, err := Wait(context.Background(), ok1, ok2, bad, propagated)
	assert.NoError(t, err, "task failures are reported in the summary, not as an error")
	assert.Len(t, summary.Finished, 2)
	assert.Len(t, summary.Failed, 2)

	assert.Contains(t, summary.Failed, bad)
	assert.Contains(t, summary.Failed, propagated)
}

func TestWait_ContextCutsOffEarly(t *testing.T) {
	pool, err := New(Config{Workers: 1, Logger: NewNopLogger()})
	assert.NoError(t, err)

	fast := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return 1, nil
	})
	release := make(chan struct{})
	slow := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		<-release
		return 2, nil
	})

	<-fast.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	summary, err := Wait(ctx, fast, slow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, summary.Finished, 1, "futures settled before the cutoff stay classified")

	close(release)
	assert.NoError(t, pool.Close())
}

func TestWait_SkipsNilFutures(t *testing.T) {
	pool, err := New(Config{Workers: 1, Logger: NewNopLogger()})
	assert.NoError(t, err)
	defer pool.Close()

	f := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return 1, nil
	})
	summary, err := Wait(context.Background(), nil, f, nil)
	assert.NoError(t, err)
	assert.Len(t, summary.Finished, 1)
}

func TestWaitAny_ReturnsFirstSettled(t *testing.T) {
	pool, err := New(Config{Workers: 2, Logger: NewNopLogger()})
	assert.NoError(t, err)

	release := make(chan struct{})
	slow := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		<-release
		return "slow", nil
	})
	fast := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return "fast", nil
	})

	winner, err := WaitAny(context.Background(), slow, fast)
	assert.NoError(t, err)
	assert.Same(t, fast, winner)

	close(release)
	assert.NoError(t, pool.Close())
}

func TestWaitAny_NoFutures(t *testing.T) {
	_, err := WaitAny(context.Background())
	assert.ErrorIs(t, err, ErrNoFutures)

	_, err = WaitAny(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoFutures)
}

func TestWaitAny_ContextCancel(t *testing.T) {
	pool, err := New(Config{Workers: 1, Logger: NewNopLogger()})
	assert.NoError(t, err)

	release := make(chan struct{})
	slow := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = WaitAny(ctx, slow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.NoError(t, pool.Close())
}

func TestGather_ValuesInInputOrder(t *testing.T) {
	pool, err := New(Config{Workers: 3, Logger: NewNopLogger()})
	assert.NoError(t, err)
	defer pool.Close()

	futures := make([]*Future, 5)
	for i := range futures {
		i := i
		futures[i] = pool.Submit(func(ctx context.Context, args ...any) (any, error) {
			time.Sleep(time.Duration(5-i) * 5 * time.Millisecond)
			return i, nil
		})
	}

	vals, err := Gather(context.Background(), futures...)
	assert.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2, 3, 4}, vals)
}

func TestGather_FirstFailureWins(t *testing.T) {
	pool, err := New(Config{Workers: 2, Logger: NewNopLogger()})
	assert.NoError(t, err)
	defer pool.Close()

	first := errors.New("first")
	second := errors.New("second")
	f1 := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, first
	})
	f2 := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return nil, second
	})

	// f2 fails sooner, but f1 comes first in argument order.
	_, err = Gather(context.Background(), f1, f2)
	assert.ErrorIs(t, err, first)
	assert.NotErrorIs(t, err, second)
}

func TestGather_DetachedFutureIsAnError(t *testing.T) {
	pool, err := New(Config{Workers: 1, Logger: NewNopLogger()})
	assert.NoError(t, err)
	defer pool.Close()

	f := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		return 1, nil
	})
	pool.FireAndForget(f)

	<-f.Done()
	_, err = Gather(context.Background(), f)
	assert.ErrorIs(t, err, ErrDetached)
}
