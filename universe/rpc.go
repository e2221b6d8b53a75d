package universe

import (
	"net"

	"github.com/ygrebnov/fabric/internal/transport"
)

// Universe is the net/rpc receiver registered under transport.UniverseService.
// It exposes only the two registration calls named in design §6.2; every
// other operation is driven internally by ServerProxy/SpaceProxy goroutines
// dialing back out to their peers.
type Universe struct {
	scheduler *Scheduler
}

// NewUniverse wraps scheduler as an RPC receiver.
func NewUniverse(scheduler *Scheduler) *Universe {
	return &Universe{scheduler: scheduler}
}

// Serve registers the Universe's RPC service at addr and returns its
// listener.
func (u *Universe) Serve(addr string) (net.Listener, error) {
	return transport.Serve(addr, transport.UniverseService, u)
}

// RegisterServer is called by a Server announcing itself at startup.
func (u *Universe) RegisterServer(args *transport.RegisterServerArgs, reply *transport.RegisterServerReply) error {
	id, err := u.scheduler.RegisterServer(args.CallbackAddr)
	if err != nil {
		return err
	}
	reply.ServerID = id
	return nil
}

// RegisterSpace is called by a Space announcing itself at startup.
func (u *Universe) RegisterSpace(args *transport.RegisterSpaceArgs, reply *transport.RegisterSpaceReply) error {
	id, err := u.scheduler.RegisterSpace(args.CallbackAddr)
	if err != nil {
		return err
	}
	reply.SpaceID = id
	return nil
}
