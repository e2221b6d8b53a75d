package server

import "errors"

const Namespace = "server"

var (
	// ErrNoUniverse names an RPC call made before the Server has registered
	// with a Universe. The RPC methods do not check for this condition and
	// never return it.
	ErrNoUniverse = errors.New(Namespace + ": not registered with a universe")
)
