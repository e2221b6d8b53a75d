package queue

import (
	"sync"

	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// Successors is the successor map: target task id -> the SuccessorTask
// awaiting that many argument slots, plus the id of the task whose
// CoarseResult registered it (needed by Space to route a locally-executed
// continuation's result back to the right Computer Proxy's intermediate
// queue).
type Successors struct {
	mu     sync.Mutex
	byID   map[taskid.ID]*task.SuccessorTask
	origin map[taskid.ID]taskid.ID
}

// NewSuccessors constructs an empty successor map.
func NewSuccessors() *Successors {
	return &Successors{
		byID:   make(map[taskid.ID]*task.SuccessorTask),
		origin: make(map[taskid.ID]taskid.ID),
	}
}

// Register records s under its own target id, remembering originID (the
// coarse task that produced it) for later routing.
func (s *Successors) Register(originID taskid.ID, succ *task.SuccessorTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := succ.TargetTaskID()
	s.byID[target] = succ
	s.origin[target] = originID
}

// Get looks up a successor by target id.
func (s *Successors) Get(target taskid.ID) (*task.SuccessorTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	succ, ok := s.byID[target]
	return succ, ok
}

// Origin returns the id of the coarse task that registered the successor
// identified by target, if still present.
func (s *Successors) Origin(target taskid.ID) (taskid.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.origin[target]
	return o, ok
}

// Remove drops a completed (or otherwise resolved) successor.
func (s *Successors) Remove(target taskid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, target)
	delete(s.origin, target)
}

// Keys returns a snapshot of the current successor-map keyset, for the
// checkpoint-idempotence property.
func (s *Successors) Keys() []taskid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]taskid.ID, 0, len(s.byID))
	for k := range s.byID {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a copy of the full table, for checkpoint serialization.
func (s *Successors) Snapshot() map[taskid.ID]*task.SuccessorTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[taskid.ID]*task.SuccessorTask, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

func (s *Successors) Lock()   { s.mu.Lock() }
func (s *Successors) Unlock() { s.mu.Unlock() }
