package universe

import (
	"context"
	"net"
	"os"
	"sync"
	"time"
)

// Process wires a Scheduler to its RPC listener and checkpoint ticker —
// the top-level object a cmd/universe binary constructs and runs.
type Process struct {
	Scheduler *Scheduler
	rpcRecv   *Universe
	listener  net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcess builds a Universe process. If cfg.Recover is set, it attempts
// to reload the last checkpoint before accepting any connections (design
// §6.3 recovery mode).
func NewProcess(opts ...Option) (*Process, error) {
	cfg := buildConfig(opts)
	sched := NewScheduler(opts...)

	if cfg.Recover {
		if err := sched.Restore(sched.checkpointPath); err != nil {
			if os.IsNotExist(err) {
				sched.logger.Warn().Str("path", sched.checkpointPath).Msg("no checkpoint file found, starting fresh")
			} else {
				sched.logger.Error().Err(err).Msg("checkpoint read failed, starting fresh")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Process{
		Scheduler: sched,
		rpcRecv:   NewUniverse(sched),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections on addr and the 10-second
// checkpoint ticker.
func (p *Process) Serve(addr string) error {
	ln, err := p.rpcRecv.Serve(addr)
	if err != nil {
		return err
	}
	p.listener = ln

	p.wg.Add(1)
	go p.checkpointLoop()
	return nil
}

func (p *Process) checkpointLoop() {
	defer p.wg.Done()
	period := p.Scheduler.CheckpointPeriod()
	if period <= 0 {
		period = 10 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.Scheduler.Checkpoint(); err != nil {
				p.Scheduler.logger.Error().Err(err).Msg("checkpoint write failed")
			}
		}
	}
}

// Stop cancels the checkpoint ticker and closes the RPC listener.
func (p *Process) Stop() {
	p.cancel()
	if p.listener != nil {
		_ = p.listener.Close()
	}
	p.wg.Wait()
}
