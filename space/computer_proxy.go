package space

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
// ready-queue poll or a busy Computer, matching the ~5ms cadence design
// §4.6 documents for the Space Proxy's equivalent loop.
const pollInterval = 5 * time.Millisecond

// ComputerProxy is the Space-side half of a registered Computer's
// connection: a send thread that checks isBusy before dispatching a ready
// task, and a receive thread that alternates between the Computer's
// getResult RPC and this proxy's own intermediate queue, which receives
// results the Space Scheduler computed locally for a Trivial successor
// owned by this Computer (design §4.7, §4.4 spaceExecuteTask).
type ComputerProxy struct {
	id        int
	addr      string
	workerNum int

	client       *rpc.Client
	space        *Scheduler
	running      *queue.Running
	intermediate *queue.Results

	logger  arbor.ILogger
	metrics metrics.Provider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newComputerProxy(id int, addr string, space *Scheduler, logger arbor.ILogger, m metrics.Provider) (*ComputerProxy, error) {
	client, err := transport.Dial(addr)
	if err != nil {
		return nil, err
	}

	var idReply transport.SetIDReply
	if err := client.Call(transport.ComputerService+".SetID", &transport.SetIDArgs{ID: id}, &idReply); err != nil {
		logger.Warn().Err(err).Int("computer_id", id).Msg("failed to push assigned id to computer")
	}

	var numReply transport.GetWorkerNumReply
	workerNum := 1
	if err := client.Call(transport.ComputerService+".GetWorkerNum", &transport.GetWorkerNumArgs{}, &numReply); err != nil {
		logger.Warn().Err(err).Int("computer_id", id).Msg("failed to read computer worker count, assuming 1")
	} else if numReply.WorkerNum > 0 {
		workerNum = numReply.WorkerNum
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ComputerProxy{
		id:           id,
		addr:         addr,
		workerNum:    workerNum,
		client:       client,
		space:        space,
		running:      queue.NewRunning(),
		intermediate: queue.NewResults(),
		logger:       logger,
		metrics:      m,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// start launches the send and receive goroutines.
func (p *ComputerProxy) start() {
	p.wg.Add(2)
	go p.sendLoop()
	go p.recvLoop()
}

// sendLoop polls the Space ready queue and, while the Computer reports
// itself idle, dispatches one task at a time via AddTask, recording it as
// running on success (design §4.7 send thread).
func (p *ComputerProxy) sendLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		var busyReply transport.IsBusyReply
		if err := p.client.Call(transport.ComputerService+".IsBusy", &transport.IsBusyArgs{}, &busyReply); err != nil {
			p.logger.Warn().Err(err).Int("computer_id", p.id).Msg("computer isBusy failed, unregistering")
			p.fail()
			return
		}
		if busyReply.Busy {
			time.Sleep(pollInterval)
			continue
		}

		t, ok := p.space.TryReadyTask()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}

		id := t.ID()
		if !id.HasComputer {
			id = id.WithComputer(p.id)
			t.SetID(id)
		}

		var reply transport.AddTaskReply
		if err := p.client.Call(transport.ComputerService+".AddTask", &transport.AddTaskArgs{Task: t}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("computer_id", p.id).Msg("computer addTask failed, unregistering")
			p.space.Ready(t)
			p.fail()
			return
		}
		p.running.Put(t)
		p.metrics.Counter(metrics.TasksDispatched, metrics.TierAttr("space")).Add(1)
	}
}

// recvLoop alternates between a non-blocking drain of results the Space
// Scheduler computed locally for this Computer's Trivial successors and a
// call to the Computer's own getResult RPC, which blocks until the Computer
// has a result or is stopping; locally computed results that arrive while
// that call waits are handled after it returns (design §4.7 receive
// thread).
func (p *ComputerProxy) recvLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		if res, ok := p.intermediate.TryPop(); ok {
			p.handleResult(res)
			continue
		}

		var reply transport.GetResultReply
		if err := p.client.Call(transport.ComputerService+".GetResult", &transport.GetResultArgs{}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("computer_id", p.id).Msg("computer getResult failed, unregistering")
			p.fail()
			return
		}
		if reply.Empty || reply.Result == nil {
			time.Sleep(pollInterval)
			continue
		}
		p.handleResult(reply.Result)
	}
}

// handleResult absorbs res into the Space scheduler under the dedup-guarded
// ProcessResult path; anything not absorbed locally (an unrecognized
// ValueResult, or any CoarseResult's registered Successor once it is
// itself resolved) is queued for upward propagation to the Universe.
//
// A result arriving here — whether from the Computer's real getResult RPC
// or from this proxy's own intermediate queue of locally-executed Trivial
// successors — still carries whatever :W segment a Computer's worker loop
// stamped onto its in-memory task copy before Execute ran (design §4.1:
// :W is local to that process, never part of p.running's key). stripWorkerTag
// normalizes that away first, so the id this func works with matches
// exactly what sendLoop's running.Put recorded: tagged through :C, never
// through :W.
func (p *ComputerProxy) handleResult(res task.Result) {
	res = stripWorkerTag(res)

	absorbed := p.space.ProcessResult(res, p.running)
	if absorbed {
		return
	}
	if vr, ok := res.(*task.ValueResult); ok {
		p.running.Remove(vr.OriginTaskID)
	}
	// Past this point res is leaving this Computer Proxy's management
	// entirely — strip the :C segment this proxy itself appended at
	// dispatch time too, so the id matches whatever running map the next
	// tier up (a Universe Space Proxy) keyed its own dispatch under.
	p.space.AddResult(stripComputerTag(res))
}

// stripWorkerTag removes the :W segment from whichever id field a
// CoarseResult/ValueResult uses for running-map bookkeeping, leaving any
// :C segment untouched.
func stripWorkerTag(res task.Result) task.Result {
	switch r := res.(type) {
	case *task.CoarseResult:
		r.TaskID = r.TaskID.WithoutWorker()
	case *task.ValueResult:
		r.OriginTaskID = r.OriginTaskID.WithoutWorker()
	}
	return res
}

// stripComputerTag additionally removes the :C segment, for a result that
// is being forwarded past this Computer Proxy to the next tier up.
func stripComputerTag(res task.Result) task.Result {
	switch r := res.(type) {
	case *task.CoarseResult:
		r.TaskID = r.TaskID.WithoutComputer()
	case *task.ValueResult:
		r.OriginTaskID = r.OriginTaskID.WithoutComputer()
	}
	return res
}

func (p *ComputerProxy) fail() {
	p.once.Do(func() {
		p.cancel()
		p.intermediate.Close()
		go func() {
			p.wg.Wait()
			_ = p.client.Close()
			p.space.UnregisterComputer(p)
		}()
	})
}
