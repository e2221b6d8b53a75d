package universe

import "errors"

const Namespace = "universe"

var (
	// ErrUnknownServer names a result whose S<n> segment names a Server that
	// is not (or no longer) registered. DispatchResult drops such a result
	// without returning an error; no function in this package returns it.
	ErrUnknownServer = errors.New(Namespace + ": unknown or unregistered server")

	// ErrUnknownSpace names an operation on a Space id not present in the
	// registry. No function in this package returns it.
	ErrUnknownSpace = errors.New(Namespace + ": unknown or unregistered space")
)
