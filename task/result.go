package task

import (
	"encoding/gob"

	"github.com/ygrebnov/fabric/taskid"
)

// Scheduler is the subset of a tier's scheduler that a Result needs in order
// to process itself: a place to enqueue newly-ready tasks and a successor
// table. Both universe.Scheduler and space.Scheduler implement it.
type Scheduler interface {
	// Ready enqueues t on this scheduler's ready queue.
	Ready(t Task)

	// RegisterSuccessor records s, keyed by s.TargetTaskID(). originID is the
	// id of the task whose CoarseResult produced s; schedulers that care
	// about per-peer routing of the eventual successor result (Space, to
	// find the right Computer Proxy's intermediate queue) use it, others
	// may ignore it.
	RegisterSuccessor(originID taskid.ID, s *SuccessorTask)

	// Successor looks up a previously registered successor by its target id.
	Successor(target taskid.ID) (*SuccessorTask, bool)

	// RemoveSuccessor drops a completed successor from the table.
	RemoveSuccessor(target taskid.ID)
}

// RunningMap is the per-proxy running-task map a Result mutates once it has
// been processed: coarse results remove themselves by id, value results
// remove their origin task.
type RunningMap interface {
	Remove(id taskid.ID)
}

// Result is the polymorphic outcome of running a Task.
type Result interface {
	// ID returns the id used to route this result: for a CoarseResult, the
	// id of the task that produced it; for a ValueResult, the id of the
	// successor it targets (both carry the same S<n> segment as the
	// originating client submission, which is what routing keys off).
	ID() taskid.ID

	// Coarse reports which Result implementation this is, without a type
	// switch at call sites that only care about the running-map cleanup
	// rule (coarse removes by own id, value removes by origin id).
	Coarse() bool

	// Process absorbs this result into the scheduler's state. It returns
	// true if the result was fully handled locally, false if its target is
	// not known to this scheduler and it must be forwarded to the parent
	// tier.
	Process(s Scheduler, running RunningMap) bool
}

// CoarseResult is produced by executing a coarse Task: a set of child tasks
// to schedule, plus the continuation that consumes their values.
type CoarseResult struct {
	TaskID     taskid.ID
	ChildTasks []Task
	Successor  *SuccessorTask
}

func (r *CoarseResult) ID() taskid.ID { return r.TaskID }
func (r *CoarseResult) Coarse() bool  { return true }

func (r *CoarseResult) Process(s Scheduler, running RunningMap) bool {
	for _, child := range r.ChildTasks {
		s.Ready(child)
	}
	if r.Successor != nil {
		s.RegisterSuccessor(r.TaskID, r.Successor)
	}
	running.Remove(r.TaskID)
	return true
}

// ValueResult carries the computed payload of a completed leaf task,
// addressed to one argument slot of one successor.
type ValueResult struct {
	OriginTaskID taskid.ID
	TargetTaskID taskid.ID
	SlotIndex    int
	Value        any
}

func (r *ValueResult) ID() taskid.ID { return r.TargetTaskID }
func (r *ValueResult) Coarse() bool  { return false }

func (r *ValueResult) Process(s Scheduler, running RunningMap) bool {
	succ, ok := s.Successor(r.TargetTaskID)
	if !ok {
		return false
	}
	if succ.Fill(r.SlotIndex, r.Value) {
		s.RemoveSuccessor(r.TargetTaskID)
		s.Ready(succ)
	}
	running.Remove(r.OriginTaskID)
	return true
}

func init() {
	// Concrete Result implementations are data-only (no function fields),
	// so they can cross a net/rpc boundary inside a Result-typed value.
	// Concrete Task implementations carrying closures (Func, SuccessorTask)
	// are intentionally NOT registered here: they never leave the process
	// that created them (see space.Scheduler.executeTrivial).
	gob.Register(&CoarseResult{})
	gob.Register(&ValueResult{})
}
