package space

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/ygrebnov/fabric/internal/transport"
)

// Process wires a Scheduler to its RPC listener and its registration with
// the Universe — the top-level object a cmd/space binary constructs and
// runs.
type Process struct {
	Scheduler *Scheduler
	rpcRecv   *Space
	listener  net.Listener

	universeAddr string
	wg           sync.WaitGroup
}

// NewProcess builds a Space process from opts.
func NewProcess(opts ...Option) (*Process, error) {
	cfg := buildConfig(opts)
	sched, err := NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &Process{
		Scheduler:    sched,
		rpcRecv:      NewSpace(sched),
		universeAddr: cfg.UniverseAddr,
	}, nil
}

// Serve starts accepting RPC connections on addr and registers with the
// Universe at the configured address, passing callbackAddr as the address
// the Universe's Space Proxy should dial back for AddTask/GetResult
// (design §6.3 Space startup).
func (p *Process) Serve(addr, callbackAddr string) error {
	ln, err := p.rpcRecv.Serve(addr)
	if err != nil {
		return err
	}
	p.listener = ln

	client, err := transport.Dial(p.universeAddr)
	if err != nil {
		return errors.Wrapf(err, "%s: dial universe at %q", Namespace, p.universeAddr)
	}
	defer client.Close()

	var reply transport.RegisterSpaceReply
	err = client.Call(
		transport.UniverseService+".RegisterSpace",
		&transport.RegisterSpaceArgs{CallbackAddr: callbackAddr},
		&reply,
	)
	if err != nil {
		return errors.Wrapf(err, "%s: register with universe at %q", Namespace, p.universeAddr)
	}

	p.Scheduler.SetID(reply.SpaceID)
	p.Scheduler.logger.Info().Int("space_id", reply.SpaceID).Str("universe", p.universeAddr).Msg("registered with universe")
	return nil
}

// Stop closes the RPC listener and releases the dedup store.
func (p *Process) Stop() {
	if p.listener != nil {
		_ = p.listener.Close()
	}
	if err := p.Scheduler.Close(); err != nil {
		p.Scheduler.logger.Warn().Err(err).Msg("dedup store close failed")
	}
	p.wg.Wait()
}
