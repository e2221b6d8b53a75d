package computer

import (
	"context"
	"testing"
	"time"

	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

func newTestComputer(workerNum int) *Computer {
	return New(
		WithWorkerNum(workerNum),
		WithLogger(logging.New(logging.TierComputer, "error")),
		WithMetrics(metrics.NewNoopProvider()),
	)
}

func TestComputer_AddTask_ExecutesAndReportsResult(t *testing.T) {
	c := newTestComputer(1)
	defer c.Stop()

	id := taskid.New(1, 0, 1)
	f := task.NewFunc(0, false, func(_ context.Context, gotID taskid.ID) task.Result {
		return &task.ValueResult{TargetTaskID: gotID, Value: 42}
	})
	f.SetID(id)

	var addReply transport.AddTaskReply
	if err := c.AddTask(&transport.AddTaskArgs{Task: f}, &addReply); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	var resReply transport.GetResultReply
	done := make(chan error, 1)
	go func() { done <- c.GetResult(&transport.GetResultArgs{}, &resReply) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GetResult failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("GetResult did not return in time")
	}

	vr, ok := resReply.Result.(*task.ValueResult)
	if !ok {
		t.Fatalf("expected *task.ValueResult, got %T", resReply.Result)
	}
	if vr.Value.(int) != 42 {
		t.Fatalf("expected 42, got %v", vr.Value)
	}
}

func TestComputer_IsBusy_TrueWhileAllSlotsOccupied(t *testing.T) {
	c := newTestComputer(1)
	release := make(chan struct{})
	started := make(chan struct{})
	f := task.NewFunc(0, false, func(context.Context, taskid.ID) task.Result {
		close(started)
		<-release
		return nil
	})
	f.SetID(taskid.New(1, 0, 1))

	var reply transport.AddTaskReply
	if err := c.AddTask(&transport.AddTaskArgs{Task: f}, &reply); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task never started")
	}

	var busyReply transport.IsBusyReply
	if err := c.IsBusy(&transport.IsBusyArgs{}, &busyReply); err != nil {
		t.Fatalf("IsBusy failed: %v", err)
	}
	if !busyReply.Busy {
		t.Fatal("expected Computer to report busy while its only slot is occupied")
	}

	close(release)
	c.Stop()
}

func TestComputer_GetWorkerNum(t *testing.T) {
	c := newTestComputer(3)
	defer c.Stop()

	var reply transport.GetWorkerNumReply
	if err := c.GetWorkerNum(&transport.GetWorkerNumArgs{}, &reply); err != nil {
		t.Fatalf("GetWorkerNum failed: %v", err)
	}
	if reply.WorkerNum != 3 {
		t.Fatalf("expected 3, got %d", reply.WorkerNum)
	}
}

func TestComputer_SetID(t *testing.T) {
	c := newTestComputer(1)
	defer c.Stop()

	var reply transport.SetIDReply
	if err := c.SetID(&transport.SetIDArgs{ID: 5}, &reply); err != nil {
		t.Fatalf("SetID failed: %v", err)
	}
	if c.ID() != 5 {
		t.Fatalf("expected ID 5, got %d", c.ID())
	}
}

func TestComputer_GetResult_ReturnsEmptyOnStop(t *testing.T) {
	c := newTestComputer(1)

	done := make(chan transport.GetResultReply, 1)
	go func() {
		var reply transport.GetResultReply
		c.GetResult(&transport.GetResultArgs{}, &reply)
		done <- reply
	}()

	time.Sleep(10 * time.Millisecond)
	c.Stop()

	select {
	case reply := <-done:
		if !reply.Empty {
			t.Fatal("expected Empty=true reply once the Computer is stopping")
		}
	case <-time.After(time.Second):
		t.Fatal("GetResult did not unblock on Stop")
	}
}
