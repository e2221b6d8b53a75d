package queue

import (
	"testing"

	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

func TestLocks_WithLocks_RunsCallbackAndReleasesBoth(t *testing.T) {
	ready := NewReady()
	successors := NewSuccessors()
	locks := NewLocks(ready, successors)

	called := false
	locks.WithLocks(func() {
		called = true
		ready.buf = append(ready.buf, newTestTask(1))
		successors.byID[taskid.New(1, 0, 1)] = task.NewSuccessorTask(taskid.New(1, 0, 1), 0, 1, nil)
	})

	if !called {
		t.Fatal("expected callback to run")
	}

	// Both locks must be released: a direct Lock/Unlock on each must not
	// deadlock.
	ready.Lock()
	ready.Unlock()
	successors.Lock()
	successors.Unlock()

	if ready.Len() != 1 {
		t.Fatalf("expected callback mutation of ready queue to stick, got len %d", ready.Len())
	}
}
