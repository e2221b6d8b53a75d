package queue

import (
	"sync"

	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// Running is the per-proxy table of tasks currently dispatched to a peer
// (a Space or Computer) and awaiting a result. On peer death it is
// drained and every entry re-dispatched to the parent tier's ready queue.
type Running struct {
	mu    sync.Mutex
	byID  map[taskid.ID]task.Task
}

// NewRunning constructs an empty running-task table.
func NewRunning() *Running {
	return &Running{byID: make(map[taskid.ID]task.Task)}
}

// Put records t as dispatched, keyed by its own id.
func (r *Running) Put(t task.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID()] = t
}

// Remove drops id from the table, e.g. once its result has been processed.
// It satisfies task.RunningMap.
func (r *Running) Remove(id taskid.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Len reports how many tasks are currently in flight.
func (r *Running) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Drain empties the table and returns everything that was in flight, for
// re-dispatch after the owning proxy's peer is declared dead.
func (r *Running) Drain() []task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]task.Task, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	r.byID = make(map[taskid.ID]task.Task)
	return out
}

func (r *Running) Lock()   { r.mu.Lock() }
func (r *Running) Unlock() { r.mu.Unlock() }
