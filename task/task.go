// Package task defines the unit of work that flows through the fabric
// (Task, SuccessorTask) and the polymorphic outcome of running one
// (Result, CoarseResult, ValueResult), together with the Result Processor
// semantics from the design (§4.2).
package task

import (
	"context"
	"sync"

	"github.com/ygrebnov/fabric/taskid"
)

// Task is a unit of work. Execute runs it and returns the Result it
// produced: either a CoarseResult (more tasks plus a continuation) or a
// ValueResult (a computed payload). Tasks are immutable except for id
// mutation during routing, which is why SetID exists alongside ID.
type Task interface {
	ID() taskid.ID
	SetID(taskid.ID)
	Layer() int
	Coarse() bool
	Execute(ctx context.Context) Result
}

// Func adapts a plain function into a Task, for the common case of a leaf
// (non-coarse) computation that has no state of its own besides its id and
// layer.
type Func struct {
	id     taskid.ID
	layer  int
	coarse bool
	fn     func(ctx context.Context, id taskid.ID) Result
}

// NewFunc builds a Task from a function. coarse should be true when fn
// returns a CoarseResult.
func NewFunc(layer int, coarse bool, fn func(ctx context.Context, id taskid.ID) Result) *Func {
	return &Func{layer: layer, coarse: coarse, fn: fn}
}

func (f *Func) ID() taskid.ID       { return f.id }
func (f *Func) SetID(id taskid.ID)  { f.id = id }
func (f *Func) Layer() int          { return f.layer }
func (f *Func) Coarse() bool        { return f.coarse }
func (f *Func) Execute(ctx context.Context) Result {
	return f.fn(ctx, f.id)
}

// SuccessorTask is a continuation awaiting Pending argument slots, identified
// by TargetTaskID from the perspective of the ValueResults that fill it (a
// SuccessorTask IS the task with id TargetTaskID). Once every slot is filled
// it becomes a ready Task like any other; Execute runs Body over the
// assembled Args.
type SuccessorTask struct {
	id     taskid.ID
	layer  int
	target taskid.ID
	body   func(ctx context.Context, args []any) Result

	// Trivial marks a continuation cheap enough that a Space may execute it
	// directly (design §4.4 spaceExecuteTask) instead of dispatching it to a
	// Computer. Set by the decomposing task; zero value is false.
	Trivial bool

	mu      sync.Mutex
	pending int
	args    []any
	filled  []bool
}

// NewSuccessorTask builds a successor awaiting nArgs values. target is the
// id other tasks' ValueResults address when contributing a slot — by
// construction this equals the SuccessorTask's own id, since a successor is
// "released" (made ready) under its own identity once complete.
func NewSuccessorTask(
	id taskid.ID, layer, nArgs int, body func(ctx context.Context, args []any) Result,
) *SuccessorTask {
	return &SuccessorTask{
		id:      id,
		layer:   layer,
		target:  id,
		pending: nArgs,
		args:    make([]any, nArgs),
		filled:  make([]bool, nArgs),
		body:    body,
	}
}

func (s *SuccessorTask) ID() taskid.ID      { return s.id }
func (s *SuccessorTask) SetID(id taskid.ID) { s.id = id }
func (s *SuccessorTask) Layer() int         { return s.layer }
func (s *SuccessorTask) Coarse() bool       { return false }

// TargetTaskID is the id that ValueResult.TargetTaskID must match to fill a
// slot on this successor.
func (s *SuccessorTask) TargetTaskID() taskid.ID { return s.target }

// MarkTrivial sets Trivial and returns s, for chaining at construction time
// in a decomposing task's Execute.
func (s *SuccessorTask) MarkTrivial() *SuccessorTask {
	s.Trivial = true
	return s
}

// Pending returns the current number of unfilled argument slots.
func (s *SuccessorTask) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Fill stores value at the given slot. It returns true exactly on the call
// that brings Pending to zero, which is the scheduler's signal to enqueue
// this successor as ready. A repeat write to an already-filled slot
// (possible under the fabric's at-least-once re-dispatch) is a no-op and
// never returns true twice: each (target, slot) pair is applied exactly
// once, per the invariant in the design.
func (s *SuccessorTask) Fill(slot int, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.filled) || s.filled[slot] {
		return false
	}
	s.filled[slot] = true
	s.args[slot] = value
	s.pending--
	return s.pending == 0
}

func (s *SuccessorTask) Execute(ctx context.Context) Result {
	s.mu.Lock()
	args := make([]any, len(s.args))
	copy(args, s.args)
	s.mu.Unlock()
	return s.body(ctx, args)
}
