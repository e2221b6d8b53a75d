// Package computer implements the Computer tier: a worker process that
// registers with a Space, executes task.Task values on a fixed pool of
// local worker goroutines, and reports results back over RPC (design
// §4.7's remote side, §6.2's Computer contract).
package computer

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
)

// Computer is the net/rpc receiver registered under transport.ComputerService.
type Computer struct {
	id        atomic.Int32
	workerNum int

	readyQ  *queue.Ready
	resultQ chan task.Result

	busy atomic.Int64

	logger  arbor.ILogger
	metrics metrics.Provider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs and starts a Computer's worker pool. Callers must still
// call Serve to expose it over RPC and register it with a Space.
func New(opts ...Option) *Computer {
	cfg := buildConfig(opts)

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(logging.TierComputer, "info")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Computer{
		workerNum: cfg.WorkerNum,
		readyQ:    queue.NewReady(),
		resultQ:   make(chan task.Result, 64),
		logger:    logger,
		metrics:   cfg.Metrics,
		ctx:       ctx,
		cancel:    cancel,
	}

	slots := newWorkerPool(cfg.WorkerNum)
	c.wg.Add(len(slots))
	for _, slot := range slots {
		go func(s *workerSlot) {
			defer c.wg.Done()
			c.worker(ctx, s)
		}(slot)
	}

	return c
}

// Serve registers the Computer's RPC service at addr and returns its
// listener.
func (c *Computer) Serve(addr string) (net.Listener, error) {
	return transport.Serve(addr, transport.ComputerService, c)
}

// Stop cancels every worker goroutine and stops accepting new tasks. Tasks
// already queued but not yet picked up are abandoned, matching the fault
// model's assumption that a dead Computer's running tasks are re-dispatched
// by its owning Computer Proxy, not resumed locally.
func (c *Computer) Stop() {
	c.cancel()
	c.readyQ.Close()
	c.wg.Wait()
}

// AddTask enqueues a task for local execution. After Stop it returns
// ErrShuttingDown and enqueues nothing.
func (c *Computer) AddTask(args *transport.AddTaskArgs, reply *transport.AddTaskReply) error {
	if c.ctx.Err() != nil {
		return ErrShuttingDown
	}
	c.readyQ.Push(args.Task)
	c.metrics.Counter(metrics.TasksDispatched, metrics.TierAttr("computer")).Add(1)
	*reply = transport.AddTaskReply{}
	return nil
}

// GetResult blocks until a result is available or the Computer is
// stopping, in which case it returns Empty=true so the polling Computer
// Proxy (design §4.7) does not hang on a dying RPC connection.
func (c *Computer) GetResult(args *transport.GetResultArgs, reply *transport.GetResultReply) error {
	select {
	case res := <-c.resultQ:
		reply.Result = res
	case <-c.ctx.Done():
		reply.Empty = true
	}
	return nil
}

// IsBusy reports whether every worker slot is occupied.
func (c *Computer) IsBusy(args *transport.IsBusyArgs, reply *transport.IsBusyReply) error {
	reply.Busy = c.isBusy()
	return nil
}

// SetID assigns the tier-local identity returned by the Space's
// RegisterComputer call.
func (c *Computer) SetID(args *transport.SetIDArgs, reply *transport.SetIDReply) error {
	c.id.Store(int32(args.ID))
	*reply = transport.SetIDReply{}
	return nil
}

// GetWorkerNum reports the Computer's configured worker count.
func (c *Computer) GetWorkerNum(args *transport.GetWorkerNumArgs, reply *transport.GetWorkerNumReply) error {
	reply.WorkerNum = c.workerNum
	return nil
}

// ID returns the Computer's tier-local identity, or 0 before registration.
func (c *Computer) ID() int { return int(c.id.Load()) }
