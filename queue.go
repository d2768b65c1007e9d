package taskpool

import "sync"

// queue is an unbounded FIFO of ready tasks. Pushing never blocks, so
// submission is decoupled from worker availability; popping blocks until a
// task arrives or the queue is closed.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*task
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends t and returns the resulting queue depth. Pushing to a closed
// queue is a no-op; the pool finishes every accepted task before closing the
// queue, so a dropped push here can only be a bug upstream.
func (q *queue) push(t *task) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return len(q.items)
	}
	q.items = append(q.items, t)
	q.cond.Signal()
	return len(q.items)
}

// pop removes and returns the oldest task. It blocks until a task is
// available; once the queue is closed and drained it returns (nil, false).
func (q *queue) pop() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

// close wakes all blocked pops. Tasks already queued are still handed out.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
