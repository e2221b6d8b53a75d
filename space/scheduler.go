// Package space implements the Space tier: an intermediate scheduler that
// owns a pool of Computers (design §4.4 Space Scheduler, §4.7 Computer
// Proxy).
package space

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/dedup"
	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// Scheduler holds a Space's ready queue, successor map, result queue (final
// results awaiting pickup by the Universe), and Computer Proxy registry
// (design §4.4). It implements task.Scheduler so Result.Process can absorb
// itself into it directly.
type Scheduler struct {
	spaceID int

	ready      *queue.Ready
	successors *queue.Successors
	locks      *queue.Locks
	results    *queue.Results

	mu              sync.Mutex
	computerProxies map[int]*ComputerProxy

	trivialMu    sync.Mutex
	trivialOwner map[taskid.ID]int

	nextComputerID atomic.Int32
	dedupStore     *dedup.Store

	logger  arbor.ILogger
	metrics metrics.Provider
}

// NewScheduler constructs an empty Space Scheduler. The duplicate-ValueResult
// store (internal/dedup) is opened in the directory set by WithDedupDir, or
// in the default directory when that option is not given.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	cfg := buildConfig(opts)

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(logging.TierSpace, "info")
	}

	store, err := dedup.Open(cfg.DedupDir)
	if err != nil {
		return nil, err
	}

	ready := queue.NewReady()
	successors := queue.NewSuccessors()

	return &Scheduler{
		ready:           ready,
		successors:      successors,
		locks:           queue.NewLocks(ready, successors),
		results:         queue.NewResults(),
		computerProxies: make(map[int]*ComputerProxy),
		trivialOwner:    make(map[taskid.ID]int),
		dedupStore:      store,
		logger:          logger,
		metrics:         cfg.Metrics,
	}, nil
}

// SetID assigns the tier-local identity returned by the Universe's
// RegisterSpace call (design §6.2 Space.setID).
func (s *Scheduler) SetID(id int) { s.spaceID = id }

// ID returns the Space's tier-local identity, or 0 before registration.
func (s *Scheduler) ID() int { return s.spaceID }

// Ready implements task.Scheduler. A released SuccessorTask marked
// Trivial is executed directly instead of being queued for a Computer
// (design §4.4 spaceExecuteTask); everything else joins the ready queue
// for a Computer Proxy's send thread to pick up.
func (s *Scheduler) Ready(t task.Task) {
	if st, ok := t.(*task.SuccessorTask); ok && st.Trivial {
		s.executeTrivial(st)
		return
	}
	s.ready.Push(t)
	s.metrics.Counter(metrics.TasksReady, metrics.TierAttr("space")).Add(1)
}

// RegisterSuccessor implements task.Scheduler. When succ is Trivial and
// originID carries a :C<n> segment, the owning Computer Proxy's id is
// remembered so the eventual trivially-executed result can be merged into
// that proxy's intermediate result queue rather than the general-purpose
// results queue.
func (s *Scheduler) RegisterSuccessor(originID taskid.ID, succ *task.SuccessorTask) {
	s.successors.Register(originID, succ)
	if succ.Trivial && originID.HasComputer {
		s.trivialMu.Lock()
		s.trivialOwner[succ.TargetTaskID()] = originID.ComputerID
		s.trivialMu.Unlock()
	}
}

// Successor implements task.Scheduler.
func (s *Scheduler) Successor(target taskid.ID) (*task.SuccessorTask, bool) {
	return s.successors.Get(target)
}

// RemoveSuccessor implements task.Scheduler, additionally dropping any
// dedup history recorded for target: once released, a second late
// ValueResult for it can no longer be distinguished by slot history kept
// only for the lifetime of an in-flight successor.
func (s *Scheduler) RemoveSuccessor(target taskid.ID) {
	s.successors.Remove(target)
	if err := s.dedupStore.Forget(target); err != nil {
		s.logger.Warn().Err(err).Str("target", target.String()).Msg("dedup forget failed")
	}
}

// ProcessResult is the Space's entry point for absorbing any Result,
// consulting the dedup store before a ValueResult is allowed to touch a
// successor's argument slots (design §9 "open question — result dedup",
// resolved as accept-and-absorb-silently for an already-applied slot).
func (s *Scheduler) ProcessResult(res task.Result, running task.RunningMap) bool {
	if vr, ok := res.(*task.ValueResult); ok {
		seen, err := s.dedupStore.SeenOrMark(vr.TargetTaskID, vr.SlotIndex)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dedup store error, proceeding without duplicate protection")
		} else if seen {
			running.Remove(vr.OriginTaskID)
			return true
		}
	}
	return res.Process(s, running)
}

// executeTrivial runs st synchronously and routes its outcome either into
// the owning Computer Proxy's intermediate queue (if one is known) or
// directly through the general result-forwarding path.
func (s *Scheduler) executeTrivial(st *task.SuccessorTask) {
	target := st.TargetTaskID()
	s.trivialMu.Lock()
	computerID, owned := s.trivialOwner[target]
	delete(s.trivialOwner, target)
	s.trivialMu.Unlock()

	res := st.Execute(context.Background())
	s.metrics.Counter(metrics.TasksCompleted, metrics.TierAttr("space")).Add(1)

	if owned {
		s.mu.Lock()
		cp, found := s.computerProxies[computerID]
		s.mu.Unlock()
		if found {
			cp.intermediate.Push(res)
			return
		}
	}

	if absorbed := s.ProcessResult(res, discardRunning{}); !absorbed {
		s.AddResult(res)
	}
}

// AddResult enqueues res on the result queue awaiting pickup by the
// Universe's Space Proxy (design §4.4 addResult).
func (s *Scheduler) AddResult(res task.Result) {
	s.results.Push(res)
}

// GetResult blocks until a final result is available. It is the handler
// for the Space's getResult RPC, called by the Universe's Space Proxy.
func (s *Scheduler) GetResult(ctx context.Context) (task.Result, bool) {
	return s.results.Pop(ctx)
}

// RegisterComputer assigns a fresh tier-local id to a newly-connecting
// Computer and starts its proxy's send/receive goroutines (design §4.4
// registerComputer).
func (s *Scheduler) RegisterComputer(callbackAddr string) (*ComputerProxy, error) {
	id := int(s.nextComputerID.Add(1))
	proxy, err := newComputerProxy(id, callbackAddr, s, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.computerProxies[id] = proxy
	s.mu.Unlock()

	proxy.start()
	s.metrics.Counter(metrics.PeersRegistered, metrics.TierAttr("space")).Add(1)
	s.logger.Info().Int("computer_id", id).Str("addr", callbackAddr).Msg("computer registered")
	return proxy, nil
}

// UnregisterComputer drains proxy's intermediate result queue (processing
// each entry as if it had just arrived) and re-enqueues everything in its
// running-task map onto the Space ready queue (design §4.4
// unregisterComputer).
func (s *Scheduler) UnregisterComputer(proxy *ComputerProxy) {
	s.mu.Lock()
	delete(s.computerProxies, proxy.id)
	s.mu.Unlock()

	drained := 0
	for {
		res, ok := proxy.intermediate.TryPop()
		if !ok {
			break
		}
		proxy.handleResult(res)
		drained++
	}

	redispatched := proxy.running.Drain()
	for _, t := range redispatched {
		s.ready.Push(t)
	}

	s.metrics.Counter(metrics.PeersLost, metrics.TierAttr("space")).Add(1)
	s.logger.Info().
		Int("computer_id", proxy.id).
		Int("drained_intermediate", drained).
		Int("redispatched", len(redispatched)).
		Msg("computer unregistered")
}

// ReadyLen reports the current Space ready-queue depth. Exported for
// tests.
func (s *Scheduler) ReadyLen() int { return s.ready.Len() }

// TryReadyTask pops one task from the Space ready queue without blocking,
// for a Computer Proxy's polling send thread (design §4.7).
func (s *Scheduler) TryReadyTask() (task.Task, bool) { return s.ready.TryPop() }

// ComputerCount reports the current Computer Proxy registry size.
// Exported for tests.
func (s *Scheduler) ComputerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.computerProxies)
}

// Close releases the dedup store.
func (s *Scheduler) Close() error { return s.dedupStore.Close() }

// discardRunning is a no-op task.RunningMap used when processing a result
// that never had a running-task map entry of its own (the trivial,
// locally-executed successor path).
type discardRunning struct{}

func (discardRunning) Remove(taskid.ID) {}
