// Package server implements the Server (client) tier: the origin of
// coarse tasks and the destination of final results (design §4.5's remote
// side, §6.2's Server contract). Submit hands a coarse task to the
// fabric; the returned channel receives its eventual final Result.
package server

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// Server is the net/rpc receiver registered under transport.ServerService.
type Server struct {
	id atomic.Int32

	clientTag     string
	nextClientID  atomic.Int32
	taskQ         *queue.Ready

	mu      sync.Mutex
	waiters map[taskid.ID]chan task.Result

	logger arbor.ILogger
}

// New constructs a Server. clientTag does not enter task ids (the "F"
// literal in the id grammar comes from taskid.New itself); it is stamped on
// the Server's registration log line, to tell apart multiple reference
// Server binaries running side by side. An empty clientTag is replaced with a
// freshly generated uuid so two Servers started without one are still
// distinguishable in logs.
func New(clientTag string, logger arbor.ILogger) *Server {
	if logger == nil {
		logger = logging.New(logging.TierServer, "info")
	}
	if clientTag == "" {
		clientTag = uuid.New().String()
	}
	return &Server{
		clientTag: clientTag,
		taskQ:     queue.NewReady(),
		waiters:   make(map[taskid.ID]chan task.Result),
		logger:    logger,
	}
}

// Serve registers the Server's RPC service at addr.
func (s *Server) Serve(addr string) (net.Listener, error) {
	return transport.Serve(addr, transport.ServerService, s)
}

// ID returns the Server's tier-local identity, or 0 before registration.
func (s *Server) ID() int { return int(s.id.Load()) }

// Submit assigns t a fresh client-local task id and enqueues it for
// pickup by the Universe's Server Proxy (via GetTask). The returned
// channel receives exactly one Result: t's eventual final answer.
func (s *Server) Submit(t task.Task) <-chan task.Result {
	clientLocalID := int(s.nextClientID.Add(1))
	id := taskid.New(clientLocalID, s.ID(), 0)
	t.SetID(id)

	ch := make(chan task.Result, 1)
	s.mu.Lock()
	s.waiters[id] = ch
	s.mu.Unlock()

	s.taskQ.Push(t)
	return ch
}

// GetTask is polled by the Universe's Server Proxy send thread.
func (s *Server) GetTask(args *transport.GetTaskArgs, reply *transport.GetTaskReply) error {
	t, ok := s.taskQ.TryPop()
	if !ok {
		reply.Empty = true
		return nil
	}
	reply.Task = t
	return nil
}

// DispatchResult delivers a final result back to whichever Submit caller
// is waiting on it. A result for an id with no waiter (e.g. the process
// restarted, or the caller never asked) is logged and dropped.
func (s *Server) DispatchResult(args *transport.DispatchResultArgs, reply *transport.DispatchResultReply) error {
	res := args.Result

	s.mu.Lock()
	ch, ok := s.waiters[res.ID()]
	if ok {
		delete(s.waiters, res.ID())
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn().Str("task", res.ID().String()).Msg("result delivered with no waiting caller")
		*reply = transport.DispatchResultReply{}
		return nil
	}

	ch <- res
	close(ch)
	*reply = transport.DispatchResultReply{}
	return nil
}

// SetID assigns the tier-local identity returned by the Universe's
// RegisterServer call.
func (s *Server) SetID(args *transport.SetIDArgs, reply *transport.SetIDReply) error {
	s.id.Store(int32(args.ID))
	*reply = transport.SetIDReply{}
	return nil
}
