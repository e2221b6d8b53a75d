package queue

// Locks composes the cross-structure lock ordering mandated by the design:
// ready queue, then successor map, then (inside f, at the caller's
// discretion) a proxy's Running table. Acquiring the two tier-wide locks
// through one helper makes it impossible to accidentally invert the order
// at a call site.
type Locks struct {
	ready      *Ready
	successors *Successors
}

// NewLocks binds the two tier-wide structures a scheduler must lock
// together.
func NewLocks(ready *Ready, successors *Successors) *Locks {
	return &Locks{ready: ready, successors: successors}
}

// WithLocks holds ready then successors for the duration of f. If f also
// needs a proxy's Running table, it must lock it itself, innermost, to
// preserve the documented ready -> successors -> running order.
func (l *Locks) WithLocks(f func()) {
	l.ready.Lock()
	defer l.ready.Unlock()
	l.successors.Lock()
	defer l.successors.Unlock()
	f()
}
