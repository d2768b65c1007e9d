package taskpool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPool_ReserveAndRelease(t *testing.T) {
	m := NewMemoryPool(1000)
	assert.Equal(t, int64(1000), m.Capacity())
	assert.Equal(t, int64(0), m.InUse())
	assert.Equal(t, int64(1000), m.Available())

	require.NoError(t, m.Reserve(600))
	assert.Equal(t, int64(600), m.InUse())
	assert.Equal(t, int64(400), m.Available())

	m.Release(200)
	assert.Equal(t, int64(400), m.InUse())
}

func TestMemoryPool_RefusesOverCapacity(t *testing.T) {
	m := NewMemoryPool(1000)
	require.NoError(t, m.Reserve(800))

	err := m.Reserve(300)
	assert.ErrorIs(t, err, ErrMemoryExhausted)
	// A refused reservation must not change the ledger.
	assert.Equal(t, int64(800), m.InUse())

	// Exactly filling the pool is fine.
	assert.NoError(t, m.Reserve(200))
	assert.Equal(t, int64(0), m.Available())
}

func TestMemoryPool_UnlimitedTracksButNeverRefuses(t *testing.T) {
	m := NewMemoryPool(0)
	assert.NoError(t, m.Reserve(1 << 40))
	assert.Equal(t, int64(1<<40), m.InUse())
	assert.Equal(t, int64(0), m.Available())
	assert.Equal(t, int64(0), m.Capacity())
}

func TestMemoryPool_OverReleaseClampsToZero(t *testing.T) {
	m := NewMemoryPool(100)
	require.NoError(t, m.Reserve(50))
	m.Release(500)
	assert.Equal(t, int64(0), m.InUse())
	assert.Equal(t, int64(100), m.Available())
}

func TestMemoryPool_NegativeAmountsIgnored(t *testing.T) {
	m := NewMemoryPool(100)
	assert.NoError(t, m.Reserve(-10))
	assert.Equal(t, int64(0), m.InUse())
	m.Release(-10)
	assert.Equal(t, int64(0), m.InUse())
}

func TestMemoryPool_ConcurrentReservations(t *testing.T) {
	m := NewMemoryPool(1000)
	var wg sync.WaitGroup
	granted := make(chan struct{}, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Reserve(10) == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	// Exactly the capacity's worth of reservations may succeed.
	assert.Len(t, granted, 100)
	assert.Equal(t, int64(1000), m.InUse())
	assert.ErrorIs(t, m.Reserve(1), ErrMemoryExhausted)
}

// TestMemoryPool_TaskStagedBuffers runs the intended usage end to end: a
// task reserves scratch space from its worker's ledger before staging data
// and releases it when done.
func TestMemoryPool_TaskStagedBuffers(t *testing.T) {
	pool, err := New(Config{Workers: 1, MemoryPoolSize: 1 << 20, Logger: NewNopLogger()})
	require.NoError(t, err)
	defer pool.Close()

	f := pool.Submit(func(ctx context.Context, args ...any) (any, error) {
		w, ok := WorkerFromContext(ctx)
		if !ok {
			t.Error("worker info missing from task context")
			return nil, nil
		}
		const need = 4096
		if err := w.Memory.Reserve(need); err != nil {
			return nil, err
		}
		defer w.Memory.Release(need)

		buf := make([]byte, need)
		return len(buf), nil
	})

	val, err := f.Result(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4096, val)
	assert.Equal(t, int64(0), pool.workers[0].Memory.InUse())
}
