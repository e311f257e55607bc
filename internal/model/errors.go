package model

import "errors"

// Error taxonomy for the state layer. Callers match these with errors.Is;
// operations wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound indicates a referenced tag, collection, or file id does
	// not resolve. Read paths log it and treat the operation as a no-op.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation indicates a structurally disallowed action, such
	// as removing the root collection. Rejected before any state mutation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrCycleDetected indicates a reparenting that would make a collection
	// its own ancestor. Rejected before any state mutation.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrBackendUnavailable indicates a failed persistence backend call.
	// Read paths swallow it (prior in-memory state kept); write paths
	// propagate it to the caller.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
