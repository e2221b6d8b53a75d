package transport

import (
	"github.com/ygrebnov/fabric/task"
)

// Args/Reply pairs below follow net/rpc convention: every exported method on
// a tier's service type takes exactly one of these as args and one as
// reply. Task and Result travel as the interfaces defined in package task;
// gob needs each concrete type registered once — package task's init does
// this for the Result types, and each concrete Task type registers itself
// in its own package — so nothing is re-registered here.

// RegisterServerArgs is sent by a Server announcing itself to the Universe.
type RegisterServerArgs struct {
	CallbackAddr string // host:port of the Server's own RPC listener
}

type RegisterServerReply struct {
	ServerID int
}

// RegisterSpaceArgs is sent by a Space announcing itself to the Universe.
type RegisterSpaceArgs struct {
	CallbackAddr string
}

type RegisterSpaceReply struct {
	SpaceID int
}

// RegisterComputerArgs is sent by a Computer announcing itself to a Space.
type RegisterComputerArgs struct {
	CallbackAddr string
}

type RegisterComputerReply struct {
	ComputerID int
	WorkerNum  int
}

// AddTaskArgs carries a task.Task to be enqueued by the receiving tier.
type AddTaskArgs struct {
	Task task.Task
}

type AddTaskReply struct{}

// GetResultArgs is empty: a peer polls/blocks for its next completed
// result with no parameters.
type GetResultArgs struct{}

// GetResultReply carries the result, or Empty=true when the callee is idle
// and has nothing to report (Computer.getResult's documented sentinel
// case).
type GetResultReply struct {
	Result task.Result
	Empty  bool
}

// SetIDArgs assigns a peer's tier-local identity after registration.
type SetIDArgs struct {
	ID int
}

type SetIDReply struct{}

// DispatchResultArgs carries a final task.Result delivered back to a
// Server.
type DispatchResultArgs struct {
	Result task.Result
}

type DispatchResultReply struct{}

// IsBusyArgs/Reply report whether a Computer's worker pool is saturated.
type IsBusyArgs struct{}

type IsBusyReply struct {
	Busy bool
}

// GetWorkerNumArgs/Reply report a Computer's configured worker count.
type GetWorkerNumArgs struct{}

type GetWorkerNumReply struct {
	WorkerNum int
}

// GetTaskArgs/Reply are polled by a Universe Server Proxy to pull the next
// task a Server has locally queued via Submit.
type GetTaskArgs struct{}

type GetTaskReply struct {
	Task  task.Task
	Empty bool
}
