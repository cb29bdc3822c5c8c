package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
)

// commandQueue is the bounded FIFO of completed command buffers between the preparation
// task and the execution goroutine. Push and pop wait and signal on the same condition.
type commandQueue struct {
	mu       *sync.Mutex
	cond     *sync.Cond
	items    []*command.Buffer
	capacity int
	closed   bool
}

func newCommandQueue(capacity int) *commandQueue {
	mu := &sync.Mutex{}
	return &commandQueue{
		mu:       mu,
		cond:     sync.NewCond(mu),
		items:    make([]*command.Buffer, 0, capacity),
		capacity: capacity,
	}
}

// push appends a buffer, waiting while the queue is full. Once the queue is closed push
// no longer waits, so a preparation task can always finish during shutdown.
func (q *commandQueue) push(b *command.Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity && !q.closed {
		q.cond.Wait()
	}
	q.items = append(q.items, b)
	q.cond.Broadcast()
}

// pop removes the oldest buffer, waiting while the queue is empty.
// It returns false only when the queue is closed and drained.
func (q *commandQueue) pop() (*command.Buffer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	b := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.cond.Broadcast()
	return b, true
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *commandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
