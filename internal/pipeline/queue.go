package pipeline

import (
	"errors"
	"sync"
)

// Message is the unit of work exchanged between pipeline nodes. Concrete
// variants are defined by the packages that produce them (internal/reads);
// nodes type-switch on the variants they understand.
type Message interface{}

// ErrTerminated is returned by Push once the queue has been closed.
var ErrTerminated = errors.New("pipeline: queue terminated")

// Queue is a bounded blocking queue connecting a set of producers to a
// node's worker pool. Push blocks while the queue is full; Pop blocks while
// it is empty. Close stops further pushes but lets consumers drain what is
// already buffered, so no accepted message is ever dropped.
type Queue struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	items  []Message // ring buffer
	head   int
	count  int
	closed bool
}

// NewQueue creates a queue holding at most capacity messages. A capacity
// below 1 is treated as 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{items: make([]Message, capacity)}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q
}

// Push enqueues msg, blocking while the queue is full. It returns
// ErrTerminated if the queue has been closed, including when the close
// happens while Push is blocked.
func (q *Queue) Push(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == len(q.items) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrTerminated
	}
	q.items[(q.head+q.count)%len(q.items)] = msg
	q.count++
	q.notEmpty.Signal()
	return nil
}

// Pop dequeues the next message, blocking while the queue is empty. The
// second return value is false only once the queue is closed and fully
// drained.
func (q *Queue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		return nil, false
	}
	msg := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.count--
	q.notFull.Signal()
	return msg, true
}

// Close marks the queue as terminated. Blocked pushers return ErrTerminated;
// blocked poppers drain remaining messages and then return false. Close is
// idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Reopen restores a closed queue so the owning node can be restarted.
func (q *Queue) Reopen() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
}

// Len reports the number of buffered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
