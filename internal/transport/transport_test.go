package transport

import (
	"testing"

	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// echoService is a minimal net/rpc receiver used to exercise Serve/Dial and
// confirm task.Result values survive a real wire round trip through gob.
type echoService struct{}

func (echoService) AddTask(args *AddTaskArgs, reply *AddTaskReply) error {
	*reply = AddTaskReply{}
	return nil
}

func (echoService) GetResult(args *GetResultArgs, reply *GetResultReply) error {
	reply.Result = &task.ValueResult{
		OriginTaskID: taskid.New(1, 0, 1),
		TargetTaskID: taskid.New(1, 0, 1),
		Value:        99,
	}
	return nil
}

func TestServeDial_RoundTrip(t *testing.T) {
	ln, err := Serve("127.0.0.1:0", "Echo", echoService{})
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer ln.Close()

	client, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	var reply GetResultReply
	if err := client.Call("Echo.GetResult", &GetResultArgs{}, &reply); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	vr, ok := reply.Result.(*task.ValueResult)
	if !ok {
		t.Fatalf("expected *task.ValueResult, got %T", reply.Result)
	}
	if vr.Value.(int) != 99 {
		t.Fatalf("expected 99, got %v", vr.Value)
	}
}

func TestDial_UnreachableAddrFails(t *testing.T) {
	if _, err := Dial("127.0.0.1:1"); err == nil {
		t.Fatal("expected Dial to an unreachable port to fail")
	}
}
