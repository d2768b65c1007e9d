package taskpool

import "sync"

// MemoryPool is a reservation ledger for the scratch memory of one worker.
// It does not allocate anything itself; tasks that stage large buffers call
// Reserve before allocating and Release when done, and the ledger refuses
// reservations that would exceed the configured capacity.
//
// A capacity of zero or less disables the limit: reservations are tracked
// but never refused.
type MemoryPool struct {
	mu       sync.Mutex
	capacity int64
	inUse    int64
}

// NewMemoryPool returns a ledger with the given capacity in bytes.
func NewMemoryPool(capacity int64) *MemoryPool {
	return &MemoryPool{capacity: capacity}
}

// Reserve records a reservation of n bytes. It returns ErrMemoryExhausted
// when the reservation would push usage past the capacity.
func (m *MemoryPool) Reserve(n int64) error {
	if n < 0 {
		n = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity > 0 && m.inUse+n > m.capacity {
		return ErrMemoryExhausted
	}
	m.inUse += n
	return nil
}

// Release returns n bytes to the pool. Usage never goes below zero, so
// over-releasing is harmless.
func (m *MemoryPool) Release(n int64) {
	if n < 0 {
		n = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inUse -= n
	if m.inUse < 0 {
		m.inUse = 0
	}
}

// Capacity returns the configured limit in bytes; zero means unlimited.
func (m *MemoryPool) Capacity() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capacity
}

// InUse returns the bytes currently reserved.
func (m *MemoryPool) InUse() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inUse
}

// Available returns the bytes still free to reserve. For unlimited pools it
// returns zero; check Capacity to tell the two apart.
func (m *MemoryPool) Available() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity <= 0 {
		return 0
	}
	return m.capacity - m.inUse
}
