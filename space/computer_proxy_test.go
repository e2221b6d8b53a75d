package space

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/fabric/examples/fib"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// fakeComputer implements the Computer RPC contract well enough to drive
// ComputerProxy in isolation from a real computer package instance.
type fakeComputer struct {
	mu        sync.Mutex
	tasks     []task.Task
	results   []task.Result
	workerNum int
	id        int
	busy      bool
	fail      bool
}

func (f *fakeComputer) AddTask(args *transport.AddTaskArgs, reply *transport.AddTaskReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errFakePeer
	}
	f.tasks = append(f.tasks, args.Task)
	*reply = transport.AddTaskReply{}
	return nil
}

func (f *fakeComputer) GetResult(_ *transport.GetResultArgs, reply *transport.GetResultReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errFakePeer
	}
	if len(f.results) == 0 {
		reply.Empty = true
		return nil
	}
	reply.Result = f.results[0]
	f.results = f.results[1:]
	return nil
}

func (f *fakeComputer) IsBusy(_ *transport.IsBusyArgs, reply *transport.IsBusyReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errFakePeer
	}
	reply.Busy = f.busy
	return nil
}

func (f *fakeComputer) SetID(args *transport.SetIDArgs, reply *transport.SetIDReply) error {
	f.mu.Lock()
	f.id = args.ID
	f.mu.Unlock()
	*reply = transport.SetIDReply{}
	return nil
}

func (f *fakeComputer) GetWorkerNum(_ *transport.GetWorkerNumArgs, reply *transport.GetWorkerNumReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reply.WorkerNum = f.workerNum
	return nil
}

var errFakePeer = fakePeerErr{}

type fakePeerErr struct{}

func (fakePeerErr) Error() string { return "fake peer failure" }

func startFakeComputer(t *testing.T, f *fakeComputer) string {
	t.Helper()
	ln, err := transport.Serve("127.0.0.1:0", transport.ComputerService, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

func TestSpace_RegisterComputer_DispatchesReadyTask(t *testing.T) {
	f := &fakeComputer{workerNum: 2}
	addr := startFakeComputer(t, f)

	s := newTestScheduler(t)
	tsk := &fib.Task{N: 1}
	tsk.SetID(taskid.New(1, 1, 1).WithSpace(1, 1))
	s.Ready(tsk)

	_, err := s.RegisterComputer(addr)
	require.NoError(t, err)
	require.Equal(t, 1, s.ComputerCount())

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.tasks) == 1
	}, 2*time.Second, 5*time.Millisecond)

	f.mu.Lock()
	got := f.tasks[0]
	f.mu.Unlock()
	require.True(t, got.ID().HasComputer, "expected :C marker appended by computer proxy send loop")
}

// TestSpace_ComputerResult_RunningMapClearedDespiteWorkerTag exercises the
// real Put -> Execute -> Remove round trip: the task recorded in
// proxy.running is the one dispatched over the wire, still untagged with
// :W, while the result that eventually comes back carries whatever :W a
// Computer's worker loop stamped onto its own copy before executing. The
// running-map entry must still clear.
func TestSpace_ComputerResult_RunningMapClearedDespiteWorkerTag(t *testing.T) {
	f := &fakeComputer{workerNum: 1}
	addr := startFakeComputer(t, f)

	s := newTestScheduler(t)
	tsk := &fib.Task{N: 1}
	tsk.SetID(taskid.New(1, 1, 1).WithSpace(1, 1))
	s.Ready(tsk)

	proxy, err := s.RegisterComputer(addr)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.tasks) == 1
	}, 2*time.Second, 5*time.Millisecond)

	f.mu.Lock()
	dispatched := f.tasks[0]
	f.mu.Unlock()
	require.True(t, dispatched.ID().HasComputer)
	require.Equal(t, 1, proxy.running.Len(), "dispatched task should be recorded as running")

	// Simulate computer/worker.go: stamp the Computer-side copy with :W
	// before executing it.
	dispatched.SetID(dispatched.ID().WithWorker(1))
	res := dispatched.Execute(context.Background())

	f.mu.Lock()
	f.results = append(f.results, res)
	f.mu.Unlock()

	require.Eventually(t, func() bool {
		return proxy.running.Len() == 0
	}, 2*time.Second, 5*time.Millisecond,
		"running map entry should clear even though the result's id was stamped with :W by the worker loop")
}

func TestSpace_ComputerResult_PropagatesToSpaceResultQueue(t *testing.T) {
	f := &fakeComputer{workerNum: 1}
	addr := startFakeComputer(t, f)

	s := newTestScheduler(t)
	proxy, err := s.RegisterComputer(addr)
	require.NoError(t, err)

	unknown := &task.ValueResult{
		OriginTaskID: taskid.New(1, 1, 1).WithSpace(1, 1).WithComputer(proxy.id),
		TargetTaskID: taskid.New(1, 1, 1),
		Value:        7,
	}
	f.mu.Lock()
	f.results = append(f.results, unknown)
	f.mu.Unlock()

	ctx := make(chan struct{})
	go func() {
		defer close(ctx)
		resultCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		res, ok := s.GetResult(resultCtx)
		require.True(t, ok)
		vr := res.(*task.ValueResult)
		require.Equal(t, 7, vr.Value)
	}()

	select {
	case <-ctx:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result to surface on the space result queue")
	}
}

func TestSpace_ComputerFailure_Unregisters(t *testing.T) {
	f := &fakeComputer{workerNum: 1}
	addr := startFakeComputer(t, f)

	s := newTestScheduler(t)
	_, err := s.RegisterComputer(addr)
	require.NoError(t, err)
	require.Equal(t, 1, s.ComputerCount())

	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()

	require.Eventually(t, func() bool {
		return s.ComputerCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
