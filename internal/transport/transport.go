// Package transport wires the fabric's peer RPC contracts. Every tier
// exposes exactly one net/rpc service, registered under a fixed name and
// dialed over a fixed default port, per design §6.2.
package transport

import (
	"net"
	"net/rpc"

	"github.com/pkg/errors"
)

// Service names and default ports, one per tier. Fixed rather than
// discovered: the fabric has no service registry, so a peer's address is
// always host:port supplied at registration time.
const (
	UniverseService = "Universe"
	SpaceService    = "Space"
	ServerService   = "Server"
	ComputerService = "Computer"

	UniverseDefaultPort = 7510
	SpaceDefaultPort    = 7511
	ServerDefaultPort   = 7512
	ComputerDefaultPort = 7513
)

// Serve registers rcvr under service name and listens on addr (host:port),
// accepting net/rpc connections until the listener is closed. It returns
// the listener so the caller can Close it during shutdown.
func Serve(addr, name string, rcvr any) (net.Listener, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(name, rcvr); err != nil {
		return nil, errors.Wrapf(err, "transport: register service %q", name)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen on %q", addr)
	}
	go srv.Accept(ln)
	return ln, nil
}

// Dial opens a net/rpc client connection to addr. Callers are responsible
// for Close-ing the returned client once the peer is known dead or the
// process is shutting down.
func Dial(addr string) (*rpc.Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %q", addr)
	}
	return c, nil
}
