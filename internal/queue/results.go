package queue

import (
	"context"
	"sync"

	"github.com/ygrebnov/fabric/task"
)

// Results is an unbounded, thread-safe FIFO of final results awaiting
// upward propagation: a Space's resultQueue (design §4.4), drained by the
// owning Space Proxy's receive thread over the getResult RPC, and a
// Server Proxy's per-client resultQueue (design §4.5), drained by its own
// receive thread.
type Results struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []task.Result
	closed bool
}

// NewResults constructs an empty result queue.
func NewResults() *Results {
	r := &Results{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push enqueues r. Never blocks.
func (q *Results) Push(r task.Result) {
	q.mu.Lock()
	q.buf = append(q.buf, r)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a result is available, the queue is closed, or ctx is
// canceled. ok is false in the latter two cases.
func (q *Results) Pop(ctx context.Context) (r task.Result, ok bool) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-stop:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 && !q.closed {
		if ctx.Err() != nil {
			return nil, false
		}
		q.cond.Wait()
	}
	if len(q.buf) == 0 {
		return nil, false
	}
	r = q.buf[0]
	q.buf = q.buf[1:]
	return r, true
}

// TryPop returns immediately: a result and true if one was queued,
// nil/false otherwise. Used by a Computer Proxy's receive thread, which
// alternates between a blocking RPC poll and a non-blocking check of its
// local intermediate result queue (design §4.7).
func (q *Results) TryPop() (task.Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil, false
	}
	r := q.buf[0]
	q.buf = q.buf[1:]
	return r, true
}

// Close wakes every blocked Pop; subsequent Pops return ok=false once
// drained.
func (q *Results) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the current queue depth.
func (q *Results) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
