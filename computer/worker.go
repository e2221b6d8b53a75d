package computer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/fabric/metrics"
	"github.com/ygrebnov/fabric/pool"
)

// workerSlot is the identity a long-lived worker goroutine carries for the
// lifetime of the Computer process; it is the unit checked out of the
// fixed worker pool (design's "Computer's local thread pool", an external
// collaborator this implementation realizes concretely).
type workerSlot struct {
	id int
}

// worker repeatedly pulls a task off readyQ, stamps its id with the
// worker's slot number (the `:W<workerId>` segment §4.1), executes it, and
// deposits the Result on resultQ. It runs until ctx is canceled.
func (c *Computer) worker(ctx context.Context, slot *workerSlot) {
	for {
		t, ok := c.readyQ.Pop(ctx)
		if !ok {
			return
		}

		c.busy.Add(1)
		t.SetID(t.ID().WithWorker(slot.id))

		c.logger.Debug().
			Int("worker", slot.id).
			Str("task", t.ID().String()).
			Msg("executing task")

		start := time.Now()
		res := t.Execute(ctx)
		c.metrics.Histogram(metrics.TaskLatencySecs, metrics.TierAttr("computer")).Record(time.Since(start).Seconds())
		c.metrics.Counter(metrics.TasksCompleted, metrics.TierAttr("computer")).Add(1)

		c.busy.Add(-1)

		if res != nil {
			select {
			case c.resultQ <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// isBusy reports whether every worker slot is currently executing a task.
func (c *Computer) isBusy() bool {
	return c.busy.Load() >= int64(c.workerNum)
}

// newWorkerPool checks out n distinct, permanently-held slots from a fixed
// pool, giving every worker goroutine a stable identity for the lifetime
// of the process (the pool is only drained back at shutdown).
func newWorkerPool(n int) []*workerSlot {
	var nextID int32
	p := pool.NewFixed(uint(n), func() *workerSlot {
		id := int(atomic.AddInt32(&nextID, 1))
		return &workerSlot{id: id}
	})

	slots := make([]*workerSlot, n)
	for i := 0; i < n; i++ {
		slots[i] = p.Get()
	}
	return slots
}
