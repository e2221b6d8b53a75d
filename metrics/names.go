package metrics

// Instrument names shared across tiers. Kept centralized so the same
// metric name is never typo'd differently by two packages.
const (
	TasksReady      = "fabric_tasks_ready"
	TasksDispatched = "fabric_tasks_dispatched"
	TasksCompleted  = "fabric_tasks_completed"
	ResultsOrphaned = "fabric_results_orphaned"
	PeersRegistered = "fabric_peers_registered"
	PeersLost       = "fabric_peers_lost"
	TaskLatencySecs = "fabric_task_latency_seconds"
	CheckpointWrite = "fabric_checkpoint_writes_total"
)

// TierAttr tags an instrument with the tier recording it (one of
// internal/logging's Tier values, passed as a plain string to avoid a
// metrics -> logging import). The same instrument name is shared by
// Universe, Space, and Computer call sites (e.g. TasksDispatched is
// incremented by a Space Proxy and a Computer Proxy alike); the tier
// attribute is what lets a Provider that supports labels (PrometheusProvider)
// or attribute-keyed identity (BasicProvider) tell those apart instead of
// merging every tier's count into one instrument.
func TierAttr(tier string) InstrumentOption {
	return WithAttributes(map[string]string{"tier": tier})
}
