package space

import (
	"context"
	"net"

	"github.com/ygrebnov/fabric/internal/transport"
)

// Space is the net/rpc receiver registered under transport.SpaceService. It
// exposes the four calls named in design §6.2: addTask (from the owning
// Universe's Space Proxy), getResult (polled by the same),
// registerComputer (from a newly-starting Computer), and setID (the
// tier-local id assigned after the Space registers).
type Space struct {
	scheduler *Scheduler
}

// NewSpace wraps scheduler as an RPC receiver.
func NewSpace(scheduler *Scheduler) *Space {
	return &Space{scheduler: scheduler}
}

// Serve registers the Space's RPC service at addr and returns its listener.
func (s *Space) Serve(addr string) (net.Listener, error) {
	return transport.Serve(addr, transport.SpaceService, s)
}

// AddTask enqueues a task dispatched by the Universe's Space Proxy.
func (s *Space) AddTask(args *transport.AddTaskArgs, reply *transport.AddTaskReply) error {
	s.scheduler.Ready(args.Task)
	*reply = transport.AddTaskReply{}
	return nil
}

// GetResult blocks until a final result is queued for upward propagation.
func (s *Space) GetResult(args *transport.GetResultArgs, reply *transport.GetResultReply) error {
	res, ok := s.scheduler.GetResult(context.Background())
	if !ok {
		reply.Empty = true
		return nil
	}
	reply.Result = res
	return nil
}

// RegisterComputer is called by a Computer announcing itself at startup. It
// dials the Computer back to learn its configured worker count before
// replying, matching the Server/Space registration contract (design §6.2
// registerComputer).
func (s *Space) RegisterComputer(args *transport.RegisterComputerArgs, reply *transport.RegisterComputerReply) error {
	proxy, err := s.scheduler.RegisterComputer(args.CallbackAddr)
	if err != nil {
		return err
	}
	reply.ComputerID = proxy.id
	reply.WorkerNum = proxy.workerNum
	return nil
}

// SetID assigns the tier-local identity returned by the Universe's
// RegisterSpace call.
func (s *Space) SetID(args *transport.SetIDArgs, reply *transport.SetIDReply) error {
	s.scheduler.SetID(args.ID)
	*reply = transport.SetIDReply{}
	return nil
}
