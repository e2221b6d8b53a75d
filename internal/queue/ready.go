// Package queue implements the thread-safe ready queue, successor map, and
// per-proxy running-task map shared by the Universe and Space schedulers
// (design §4.3/§4.4), plus the lock-ordering helper from §5.
package queue

import (
	"context"
	"sync"

	"github.com/ygrebnov/fabric/task"
)

// Ready is an unbounded, thread-safe FIFO of tasks waiting to be dispatched.
// It is the blocking queue referred to throughout the design as
// "universe.readyQueue" / Space's ready queue.
type Ready struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []task.Task
	closed bool
}

// NewReady constructs an empty ready queue.
func NewReady() *Ready {
	r := &Ready{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push enqueues t. Never blocks: the queue grows without bound.
func (r *Ready) Push(t task.Task) {
	r.mu.Lock()
	r.buf = append(r.buf, t)
	r.mu.Unlock()
	r.cond.Signal()
}

// Pop blocks until a task is available, the queue is closed, or ctx is
// canceled. ok is false in the latter two cases.
func (r *Ready) Pop(ctx context.Context) (t task.Task, ok bool) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.cond.Broadcast()
		case <-stop:
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.buf) == 0 && !r.closed {
		if ctx.Err() != nil {
			return nil, false
		}
		r.cond.Wait()
	}
	if len(r.buf) == 0 {
		return nil, false
	}
	t = r.buf[0]
	r.buf = r.buf[1:]
	return t, true
}

// TryPop returns immediately: a task and true if one was queued, nil/false
// otherwise. Used by components that poll rather than block (e.g. a
// Computer Proxy send thread that must also watch computer.isBusy()).
func (r *Ready) TryPop() (task.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return nil, false
	}
	t := r.buf[0]
	r.buf = r.buf[1:]
	return t, true
}

// Len reports the current queue depth.
func (r *Ready) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Close wakes every blocked Pop; subsequent Pops return ok=false once
// drained. Close does not discard queued tasks (Snapshot/TryPop still see
// them); it only stops new blocking waits from hanging forever during
// shutdown.
func (r *Ready) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// RemoveWhere purges every queued task matching pred and returns them, e.g.
// to purge a dead Server's tasks from the Universe ready queue.
func (r *Ready) RemoveWhere(pred func(task.Task) bool) []task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.buf[:0:0]
	var removed []task.Task
	for _, t := range r.buf {
		if pred(t) {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	r.buf = kept
	return removed
}

// Snapshot returns a copy of the queue's current contents, oldest first, for
// checkpointing. It does not drain the queue.
func (r *Ready) Snapshot() []task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]task.Task, len(r.buf))
	copy(out, r.buf)
	return out
}

// Lock and Unlock expose the queue's mutex for the cross-structure lock
// ordering enforced by Locks.WithLocks. Application code should prefer
// Push/Pop/TryPop; Lock/Unlock exist only for that helper.
func (r *Ready) Lock()   { r.mu.Lock() }
func (r *Ready) Unlock() { r.mu.Unlock() }
