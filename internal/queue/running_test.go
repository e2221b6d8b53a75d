package queue

import (
	"testing"

	"github.com/ygrebnov/fabric/taskid"
)

func TestRunning_PutRemove(t *testing.T) {
	r := NewRunning()
	t1 := newTestTask(1)
	r.Put(t1)

	if r.Len() != 1 {
		t.Fatalf("expected len 1, got %d", r.Len())
	}
	r.Remove(t1.ID())
	if r.Len() != 0 {
		t.Fatalf("expected len 0 after Remove, got %d", r.Len())
	}
}

func TestRunning_Remove_UnknownIDIsNoOp(t *testing.T) {
	r := NewRunning()
	r.Remove(taskid.New(99, 0, 99))
	if r.Len() != 0 {
		t.Fatal("Remove of unknown id must not panic or add entries")
	}
}

func TestRunning_Drain(t *testing.T) {
	r := NewRunning()
	r.Put(newTestTask(1))
	r.Put(newTestTask(2))

	drained := r.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained tasks, got %d", len(drained))
	}
	if r.Len() != 0 {
		t.Fatal("Drain must empty the table")
	}
}
