package universe

import (
	"context"
	"testing"

	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

func TestScheduler_RegisterSuccessor_FillAndRelease(t *testing.T) {
	s := NewScheduler()

	target := taskid.New(1, 0, 1).AsSuccessor()
	succ := task.NewSuccessorTask(target, 1, 2, func(_ context.Context, args []any) task.Result {
		return &task.ValueResult{OriginTaskID: target, TargetTaskID: target, Value: args[0].(int) + args[1].(int)}
	})

	s.RegisterSuccessor(taskid.New(1, 0, 1), succ)

	got, ok := s.Successor(target)
	if !ok || got != succ {
		t.Fatalf("expected registered successor to be retrievable")
	}

	running := newTestRunning()
	first := &task.ValueResult{OriginTaskID: taskid.New(2, 0, 1), TargetTaskID: target, SlotIndex: 0, Value: 3}
	if absorbed := first.Process(s, running); !absorbed {
		t.Fatal("expected first value result to be absorbed")
	}
	if s.ReadyLen() != 0 {
		t.Fatalf("expected successor not yet ready, ready len=%d", s.ReadyLen())
	}

	second := &task.ValueResult{OriginTaskID: taskid.New(3, 0, 1), TargetTaskID: target, SlotIndex: 1, Value: 4}
	if absorbed := second.Process(s, running); !absorbed {
		t.Fatal("expected second value result to be absorbed")
	}
	if s.ReadyLen() != 1 {
		t.Fatalf("expected successor enqueued as ready, ready len=%d", s.ReadyLen())
	}
	if _, ok := s.Successor(target); ok {
		t.Fatal("expected successor removed from map after release")
	}
}

func TestScheduler_UnknownTargetForwardsUpward(t *testing.T) {
	s := NewScheduler()
	running := newTestRunning()

	vr := &task.ValueResult{
		OriginTaskID: taskid.New(1, 0, 1),
		TargetTaskID: taskid.New(9, 0, 1).AsSuccessor(),
		Value:        1,
	}
	if absorbed := vr.Process(s, running); absorbed {
		t.Fatal("expected orphan value result to report not-absorbed")
	}
}

func TestScheduler_CoarseResult_EnqueuesChildrenAndSuccessor(t *testing.T) {
	s := NewScheduler()
	running := queue.NewRunning()

	parentID := taskid.New(1, 0, 1)
	child := task.NewFunc(1, false, func(_ context.Context, id taskid.ID) task.Result {
		return &task.ValueResult{OriginTaskID: id, Value: 1}
	})
	child.SetID(taskid.New(2, 0, 1))

	successorID := parentID.AsSuccessor()
	succ := task.NewSuccessorTask(successorID, 1, 1, func(_ context.Context, args []any) task.Result {
		return &task.ValueResult{Value: args[0]}
	})

	running.Put(child)
	cr := &task.CoarseResult{TaskID: parentID, ChildTasks: []task.Task{child}, Successor: succ}

	if absorbed := cr.Process(s, running); !absorbed {
		t.Fatal("expected coarse result to always be absorbed")
	}
	if s.ReadyLen() != 1 {
		t.Fatalf("expected one child task enqueued, ready len=%d", s.ReadyLen())
	}
	if _, ok := s.Successor(successorID); !ok {
		t.Fatal("expected successor registered")
	}
}

func TestScheduler_NextTaskID_Monotonic(t *testing.T) {
	s := NewScheduler()
	a := s.NextTaskID()
	b := s.NextTaskID()
	if b != a+1 {
		t.Fatalf("expected monotonic sequence, got %d then %d", a, b)
	}
}

// testRunning is a minimal task.RunningMap for tests that don't need the
// full queue.Running implementation.
type testRunning struct {
	removed []taskid.ID
}

func newTestRunning() *testRunning { return &testRunning{} }

func (r *testRunning) Remove(id taskid.ID) { r.removed = append(r.removed, id) }
