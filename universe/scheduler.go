// Package universe implements the Universe tier: the single root process
// that brokers between Servers and Spaces (design §4.3 Universe Scheduler,
// §4.5 Server Proxy, §4.6 Space Proxy).
package universe

import (
	"net/rpc"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/internal/checkpoint"
	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/internal/queue"
	"github.com/ygrebnov/fabric/internal/transport"
	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/task"
	"github.com/ygrebnov/fabric/taskid"
)

// Scheduler holds the Universe's readyQueue, successorMap, and the
// registries of connected Server/Space proxies (design §4.3). It
// implements task.Scheduler so CoarseResult/ValueResult can absorb
// themselves into it directly.
type Scheduler struct {
	ready      *queue.Ready
	successors *queue.Successors
	locks      *queue.Locks

	mu            sync.Mutex
	serverProxies map[int]*ServerProxy
	spaceProxies  map[int]*SpaceProxy

	nextServerID atomic.Int32
	nextSpaceID  atomic.Int32
	nextTaskID   atomic.Int32

	checkpointPath   string
	checkpointPeriod time.Duration
	logger           arbor.ILogger
	metrics          metrics.Provider
}

// NewScheduler constructs an empty Universe Scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	cfg := buildConfig(opts)

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(logging.TierUniverse, "info")
	}
	checkpointPath := cfg.CheckpointPath
	if checkpointPath == "" {
		checkpointPath = checkpoint.FileName
	}

	ready := queue.NewReady()
	successors := queue.NewSuccessors()

	return &Scheduler{
		ready:            ready,
		successors:       successors,
		locks:            queue.NewLocks(ready, successors),
		serverProxies:    make(map[int]*ServerProxy),
		spaceProxies:     make(map[int]*SpaceProxy),
		checkpointPath:   checkpointPath,
		checkpointPeriod: cfg.CheckpointPeriod,
		logger:           logger,
		metrics:          cfg.Metrics,
	}
}

// CheckpointPeriod returns the configured checkpoint cadence.
func (s *Scheduler) CheckpointPeriod() time.Duration { return s.checkpointPeriod }

// Ready implements task.Scheduler: enqueue t on the Universe ready queue.
func (s *Scheduler) Ready(t task.Task) {
	s.ready.Push(t)
	s.metrics.Counter(metrics.TasksReady, metrics.TierAttr("universe")).Add(1)
}

// RegisterSuccessor implements task.Scheduler.
func (s *Scheduler) RegisterSuccessor(originID taskid.ID, succ *task.SuccessorTask) {
	s.successors.Register(originID, succ)
}

// Successor implements task.Scheduler.
func (s *Scheduler) Successor(target taskid.ID) (*task.SuccessorTask, bool) {
	return s.successors.Get(target)
}

// RemoveSuccessor implements task.Scheduler.
func (s *Scheduler) RemoveSuccessor(target taskid.ID) {
	s.successors.Remove(target)
}

// NextTaskID returns the next Universe-wide task sequence number, used by a
// Server Proxy's send thread to append the :U<n> marker (design §4.1, §4.5).
func (s *Scheduler) NextTaskID() int {
	return int(s.nextTaskID.Add(1))
}

// RegisterServer dials the Server at callbackAddr, assigns it a fresh
// tier-local id, and starts its proxy's send/receive goroutines (design
// §4.3 registerServer).
func (s *Scheduler) RegisterServer(callbackAddr string) (int, error) {
	id := int(s.nextServerID.Add(1))
	if err := s.connectServer(id, callbackAddr); err != nil {
		return 0, err
	}
	return id, nil
}

// connectServer dials the Server at callbackAddr and registers its proxy
// under the given id, reused verbatim by both RegisterServer (fresh id) and
// Restore (a checkpointed id, so a redialed peer's already-ready tasks keep
// routing to the same ServerProxy entry they were tagged with before the
// restart).
func (s *Scheduler) connectServer(id int, callbackAddr string) error {
	client, err := transport.Dial(callbackAddr)
	if err != nil {
		return errors.Wrapf(err, "%s: register server at %q", Namespace, callbackAddr)
	}

	proxy := newServerProxy(id, callbackAddr, client, s, s.logger, s.metrics)

	s.mu.Lock()
	s.serverProxies[id] = proxy
	s.mu.Unlock()

	if _, _, err := callSetID(client, transport.ServerService, id); err != nil {
		s.logger.Warn().Err(err).Int("server_id", id).Msg("failed to push assigned id to server")
	}

	proxy.start()
	s.metrics.Counter(metrics.PeersRegistered, metrics.TierAttr("universe")).Add(1)
	s.logger.Info().Int("server_id", id).Str("addr", callbackAddr).Msg("server registered")
	return nil
}

// RegisterSpace dials the Space at callbackAddr, assigns it a fresh
// tier-local id, and starts its proxy's send/receive goroutines (design
// §4.3 registerSpace).
func (s *Scheduler) RegisterSpace(callbackAddr string) (int, error) {
	id := int(s.nextSpaceID.Add(1))
	if err := s.connectSpace(id, callbackAddr); err != nil {
		return 0, err
	}
	return id, nil
}

// connectSpace is connectServer's Space-side counterpart; see its doc.
func (s *Scheduler) connectSpace(id int, callbackAddr string) error {
	client, err := transport.Dial(callbackAddr)
	if err != nil {
		return errors.Wrapf(err, "%s: register space at %q", Namespace, callbackAddr)
	}

	proxy := newSpaceProxy(id, callbackAddr, client, s, s.logger, s.metrics)

	s.mu.Lock()
	s.spaceProxies[id] = proxy
	s.mu.Unlock()

	if _, _, err := callSetID(client, transport.SpaceService, id); err != nil {
		s.logger.Warn().Err(err).Int("space_id", id).Msg("failed to push assigned id to space")
	}

	proxy.start()
	s.metrics.Counter(metrics.PeersRegistered, metrics.TierAttr("universe")).Add(1)
	s.logger.Info().Int("space_id", id).Str("addr", callbackAddr).Msg("space registered")
	return nil
}

// bumpAtLeast advances ctr so the next Add(1) never reissues an id <= v,
// used when Restore reinstates peers under their checkpointed ids.
func bumpAtLeast(ctr *atomic.Int32, v int32) {
	for {
		cur := ctr.Load()
		if cur >= v {
			return
		}
		if ctr.CompareAndSwap(cur, v) {
			return
		}
	}
}

func callSetID(client *rpc.Client, service string, id int) (*transport.SetIDReply, int, error) {
	var reply transport.SetIDReply
	err := client.Call(service+".SetID", &transport.SetIDArgs{ID: id}, &reply)
	return &reply, id, err
}

// DispatchResult routes a final result to the ServerProxy owning its S<n>
// segment, or drops it silently if that client is no longer registered
// (design §4.3 dispatchResult, §7 "result for dead client").
func (s *Scheduler) DispatchResult(res task.Result) {
	id := res.ID()
	s.mu.Lock()
	proxy, ok := s.serverProxies[id.ServerID]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn().Str("task", id.String()).Msg("dropping result for unregistered server")
		return
	}
	proxy.deliver(res)
}

// UnregisterServer removes proxy from the registry and purges every ready
// task whose S<n> segment matches it, per design §4.3 unregisterServer.
func (s *Scheduler) UnregisterServer(proxy *ServerProxy) {
	s.mu.Lock()
	delete(s.serverProxies, proxy.id)
	s.mu.Unlock()

	purged := s.ready.RemoveWhere(func(t task.Task) bool { return t.ID().ServerID == proxy.id })
	s.metrics.Counter(metrics.PeersLost, metrics.TierAttr("universe")).Add(1)
	s.logger.Info().Int("server_id", proxy.id).Int("purged_tasks", len(purged)).Msg("server unregistered")
}

// UnregisterSpace removes proxy from the registry and re-enqueues every
// task it had running, per design §4.3 unregisterSpace.
func (s *Scheduler) UnregisterSpace(proxy *SpaceProxy) {
	s.mu.Lock()
	delete(s.spaceProxies, proxy.id)
	s.mu.Unlock()

	running := proxy.running.Drain()
	for _, t := range running {
		s.Ready(t)
	}
	s.metrics.Counter(metrics.PeersLost, metrics.TierAttr("universe")).Add(1)
	s.logger.Info().Int("space_id", proxy.id).Int("redispatched", len(running)).Msg("space unregistered")
}

// Checkpoint serializes the Universe's recoverable state under the
// documented lock order (design §4.3 checkpoint, §6.4).
func (s *Scheduler) Checkpoint() error {
	var state checkpoint.State
	s.locks.WithLocks(func() {
		state.ReadyTasks = s.ready.Snapshot()
		state.SuccessorKeys = s.successors.Keys()
	})

	s.mu.Lock()
	for _, p := range s.serverProxies {
		state.ServerPeers = append(state.ServerPeers, checkpoint.PeerRecord{ID: p.id, Addr: p.addr})
	}
	for _, p := range s.spaceProxies {
		state.SpacePeers = append(state.SpacePeers, checkpoint.PeerRecord{ID: p.id, Addr: p.addr})
	}
	s.mu.Unlock()

	if err := checkpoint.Write(s.checkpointPath, state); err != nil {
		return err
	}
	s.metrics.Counter(metrics.CheckpointWrite, metrics.TierAttr("universe")).Add(1)
	return nil
}

// Restore reloads a previously written checkpoint, repopulates the ready
// queue, and actively redials every checkpointed Server and Space at its
// last known callback address, reinstating each under the same tier-local
// id it held before the restart (so a restored ready task's baked-in
// S<n>/P<n> segment still resolves to the right proxy). A peer that isn't
// listening yet when Restore runs logs a warning and is skipped; it falls
// back to registering itself fresh, under a new id, whenever it does come
// up, exactly like a Server/Space contacting the Universe for the first
// time.
//
// state.SuccessorKeys is not reconstructed into s.successors: a
// *task.SuccessorTask carries an unexported continuation closure (design §9
// "serialization for checkpoint") that cannot survive a gob round trip, so
// only its target keyset was ever checkpointed, not a value Restore could
// requeue. A child ValueResult whose target successor was lost this way has
// no match in Successor(), so Process returns false and the result is
// forwarded up the normal unknown-target path (DispatchResult at this tier)
// instead of panicking or hanging — a visible drop, not a crash, consistent
// with the documented non-goal of strong checkpoint/network consistency.
func (s *Scheduler) Restore(path string) error {
	state, err := checkpoint.Read(path)
	if err != nil {
		return err
	}

	for _, t := range state.ReadyTasks {
		s.ready.Push(t)
	}

	redialedServers := 0
	for _, p := range state.ServerPeers {
		bumpAtLeast(&s.nextServerID, int32(p.ID))
		if err := s.connectServer(p.ID, p.Addr); err != nil {
			s.logger.Warn().Err(err).Int("server_id", p.ID).Str("addr", p.Addr).
				Msg("could not redial checkpointed server, waiting for it to re-register")
			continue
		}
		redialedServers++
	}

	redialedSpaces := 0
	for _, p := range state.SpacePeers {
		bumpAtLeast(&s.nextSpaceID, int32(p.ID))
		if err := s.connectSpace(p.ID, p.Addr); err != nil {
			s.logger.Warn().Err(err).Int("space_id", p.ID).Str("addr", p.Addr).
				Msg("could not redial checkpointed space, waiting for it to re-register")
			continue
		}
		redialedSpaces++
	}

	s.logger.Info().
		Int("ready_tasks", len(state.ReadyTasks)).
		Int("successor_keys", len(state.SuccessorKeys)).
		Int("known_servers", len(state.ServerPeers)).
		Int("redialed_servers", redialedServers).
		Int("known_spaces", len(state.SpacePeers)).
		Int("redialed_spaces", redialedSpaces).
		Msg("restored universe checkpoint")
	return nil
}

// ReadyLen reports the current Universe ready-queue depth. Exported for
// tests asserting the re-dispatch invariant (design §8 property 4).
func (s *Scheduler) ReadyLen() int { return s.ready.Len() }

// TryReadyTask pops one task from the Universe ready queue without
// blocking, for a Space Proxy's polling send thread (design §4.6).
func (s *Scheduler) TryReadyTask() (task.Task, bool) {
	return s.ready.TryPop()
}

// ServerCount and SpaceCount report the current registry sizes. Exported
// for tests asserting unregistration.
func (s *Scheduler) ServerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.serverProxies)
}

func (s *Scheduler) SpaceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spaceProxies)
}
