package computer

import "errors"

const Namespace = "computer"

var (
	// ErrNotRegistered names an RPC call made before SetID has assigned the
	// Computer its tier-local identity. The RPC methods do not check for
	// this condition and never return it.
	ErrNotRegistered = errors.New(Namespace + ": not yet registered with a Space")

	// ErrShuttingDown is returned by AddTask once Stop has been called.
	ErrShuttingDown = errors.New(Namespace + ": shutting down")
)
