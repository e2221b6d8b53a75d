package universe

import (
	"context"
	"net/rpc"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
)

// SpaceProxy is the Universe-side half of a registered Space's connection:
// a send thread dispatching ready tasks to it, and a receive thread
// absorbing its results (design §4.6). Each SpaceProxy carries its own
// TaskID counter for the :P<spaceID>:<seq> segment, distinct from the
// Universe's own sequence and from any Computer Proxy's counter (design §9
// "TaskID counter duplication").
type SpaceProxy struct {
	id   int
	addr string

	client     *rpc.Client
	universe   *Scheduler
	running    *queue.Running
	nextTaskID atomic.Int32

	logger  arbor.ILogger
	metrics metrics.Provider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newSpaceProxy(id int, addr string, client *rpc.Client, u *Scheduler, logger arbor.ILogger, m metrics.Provider) *SpaceProxy {
	ctx, cancel := context.WithCancel(context.Background())
	return &SpaceProxy{
		id:       id,
		addr:     addr,
		client:   client,
		universe: u,
		running:  queue.NewRunning(),
		logger:   logger,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *SpaceProxy) start() {
	p.wg.Add(2)
	go p.sendLoop()
	go p.recvLoop()
}

// sendLoop polls the Universe ready queue, tags each task with this
// Space's :P<spaceID>:<seq> marker if it doesn't already carry one, and
// dispatches it over RPC, recording it as running on success (design §4.6
// send thread).
func (p *SpaceProxy) sendLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		t, ok := p.universe.TryReadyTask()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}

		id := t.ID()
		if !id.HasSpace {
			id = id.WithSpace(p.id, int(p.nextTaskID.Add(1)))
			t.SetID(id)
		}

		var reply transport.AddTaskReply
		if err := p.client.Call(transport.SpaceService+".AddTask", &transport.AddTaskArgs{Task: t}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("space_id", p.id).Msg("space addTask failed, unregistering")
			p.universe.Ready(t)
			p.fail()
			return
		}
		p.running.Put(t)
		p.metrics.Counter(metrics.TasksDispatched, metrics.TierAttr("universe")).Add(1)
	}
}

// recvLoop blocks on the Space's getResult RPC and absorbs each result
// into the Universe scheduler. Process runs with no lock spanning the whole
// call: the ready queue, successor map and running table each take only
// their own lock as Process touches them. Results
// with no matching successor anywhere in the Universe are the final
// answer and are dispatched to the originating client (design §4.6
// receive thread).
func (p *SpaceProxy) recvLoop() {
	defer p.wg.Done()
	for {
		var reply transport.GetResultReply
		if err := p.client.Call(transport.SpaceService+".GetResult", &transport.GetResultArgs{}, &reply); err != nil {
			p.logger.Warn().Err(err).Int("space_id", p.id).Msg("space getResult failed, unregistering")
			p.fail()
			return
		}
		if reply.Empty || reply.Result == nil {
			continue
		}

		res := reply.Result
		absorbed := res.Process(p.universe, p.running)
		if !absorbed {
			if vr, ok := res.(*task.ValueResult); ok {
				p.running.Remove(vr.OriginTaskID)
			}
			p.universe.DispatchResult(res)
		}
	}
}

func (p *SpaceProxy) fail() {
	p.once.Do(func() {
		p.cancel()
		go func() {
			p.wg.Wait()
			_ = p.client.Close()
			p.universe.UnregisterSpace(p)
		}()
	})
}
