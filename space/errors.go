package space

import "errors"

const Namespace = "space"

var (
	// ErrUnknownComputer names an operation on a Computer id not present in
	// the registry. No function in this package returns it.
	ErrUnknownComputer = errors.New(Namespace + ": unknown or unregistered computer")
)
