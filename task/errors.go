package task

import "errors"

// Namespace prefixes every sentinel error in this package, following the
// distilled source's convention of namespacing error strings by package.
const Namespace = "task"

var (
	// ErrSlotOutOfRange names a slot index outside a successor's argument
	// list. Fill does not return it: for such an index it degrades to a no-op
	// and returns false, since it runs on the hot result-processing path. No
	// caller of Fill returns it either.
	ErrSlotOutOfRange = errors.New(Namespace + ": slot index out of range")

	// ErrUnknownTarget marks a ValueResult whose target successor is not
	// known to any tier's successor map — not a failure, just the signal
	// that the scheduler must forward the result to its parent.
	ErrUnknownTarget = errors.New(Namespace + ": successor target not found")
)
