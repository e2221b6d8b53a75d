package universe

import (
	"context"
	"net/rpc"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
)

// pollInterval is how long the send thread backs off after an empty
// getTask/ready-queue poll, matching the "~5ms" cadence design §4.6
// documents for the Space Proxy's equivalent loop.
const pollInterval = 5 * time.Millisecond

// ServerProxy is the Universe-side half of a registered client's
// connection: a send thread pulling tasks off the client via GetTask, and
// a receive thread delivering results back via DispatchResult (design
// §4.5).
type ServerProxy struct {
	id   int
	addr string

	client   *rpc.Client
	universe *Scheduler
	resultQ  *queue.Results

	logger  arbor.ILogger
	metrics metrics.Provider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newServerProxy(id int, addr string, client *rpc.Client, u *Scheduler, logger arbor.ILogger, m metrics.Provider) *ServerProxy {
	ctx, cancel := context.WithCancel(context.Background())
	return &ServerProxy{
		id:       id,
		addr:     addr,
		client:   client,
		universe: u,
		resultQ:  queue.NewResults(),
		logger:   logger,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// start launches the send and receive goroutines.
func (p *ServerProxy) start() {
	p.wg.Add(2)
	go p.sendLoop()
	go p.recvLoop()
}

// deliver enqueues res for the receive thread to push to the client.
func (p *ServerProxy) deliver(res task.Result) {
	p.resultQ.Push(res)
}

// sendLoop repeatedly polls the client for a new coarse task, tags it with
// the next Universe sequence number, and enqueues it on the Universe
// ready queue (design §4.5 send thread).
func (p *ServerProxy) sendLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		var reply transport.GetTaskReply
		if err := p.client.Call(transport.ServerService+".GetTask", &transport.GetTaskArgs{}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("server_id", p.id).Msg("server getTask failed, unregistering")
			p.fail()
			return
		}
		if reply.Empty || reply.Task == nil {
			time.Sleep(pollInterval)
			continue
		}

		t := reply.Task
		t.SetID(t.ID().WithUniverse(p.universe.NextTaskID()))
		p.universe.Ready(t)
		p.metrics.Counter(metrics.TasksDispatched, metrics.TierAttr("universe")).Add(1)
	}
}

// recvLoop drains the proxy's local result queue and pushes each result
// back to the client (design §4.5 receive thread).
func (p *ServerProxy) recvLoop() {
	defer p.wg.Done()
	for {
		res, ok := p.resultQ.Pop(p.ctx)
		if !ok {
			return
		}

		var reply transport.DispatchResultReply
		if err := p.client.Call(transport.ServerService+".DispatchResult", &transport.DispatchResultArgs{Result: res}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("server_id", p.id).Msg("server dispatchResult failed, unregistering")
			p.fail()
			return
		}
	}
}

// fail tears the proxy down exactly once: cancel both loops, then (once
// both have observed the cancellation and exited) close the RPC client
// and unregister from the Universe, per the DRAINING state in design
// §4.6's state machine (mirrored here for the Server Proxy).
func (p *ServerProxy) fail() {
	p.once.Do(func() {
		p.cancel()
		p.resultQ.Close()
		go func() {
			p.wg.Wait()
			_ = p.client.Close()
			p.universe.UnregisterServer(p)
		}()
	})
}
