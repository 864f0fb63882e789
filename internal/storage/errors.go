package storage

import "errors"

// Error kinds the storage engine returns.
//
// Not-found is the only kind most traversal consumers treat as non-fatal
// (an empty result); the rest are always surfaced.
var (
	// ErrNotFound is returned when a node, edge, or vector id doesn't
	// resolve to a record.
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyExists is returned when a caller-supplied id collides with
	// an existing record.
	ErrAlreadyExists = errors.New("storage: id already exists")

	// ErrLabelRequired is returned when a create call is given an empty
	// label.
	ErrLabelRequired = errors.New("storage: label must not be empty")

	// ErrEndpointMissing is returned by CreateEdge when check_endpoints is
	// set and either endpoint does not exist.
	ErrEndpointMissing = errors.New("storage: edge endpoint does not exist")

	// ErrLabelMismatch is returned by CreateEdge when an endpoint's label
	// doesn't match the label the caller declared for that side.
	ErrLabelMismatch = errors.New("storage: edge endpoint label mismatch")

	// ErrIntegrity marks corruption: an adjacency entry was decoded but its
	// edge record is missing. Always fatal.
	ErrIntegrity = errors.New("storage: integrity violation")

	// ErrNoPath is returned by ShortestPath when no path connects the two
	// nodes.
	ErrNoPath = errors.New("storage: no path between nodes")

	// ErrClosed is returned by any operation performed after Close.
	ErrClosed = errors.New("storage: engine is closed")
)
