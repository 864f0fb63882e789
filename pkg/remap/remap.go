// Package remap implements HelixDB's remapping runtime: the side channel
// that carries per-element field projection alongside traversal output
// without changing the element's type as it flows through the pipeline.
//
// Property projection (a query's RETURN clause excluding, renaming, or
// substituting fields) is not a traversal step that rewrites nodes and
// edges in place — steps keep passing around the same TraversalValue.
// Instead, a channel keyed by element id records what each element should
// look like once rendered, and response serialization consults that
// channel at the end. This keeps the traversal pipeline itself ignorant
// of projection, the same separation straga-Mimir_lite's executor keeps
// between graph traversal (pkg/cypher) and result shaping (its
// Filterable/check_property helpers) — generalized here into an explicit
// side-channel type instead of a trait method, since Go has no trait
// objects to hang per-kind overrides off of.
package remap

import (
	"sync"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/pkg/traversal"
)

// Remapping describes how a single field of a single element should be
// rendered. Exactly one of its variants applies at a time; which one is
// reported by Kind.
type Remapping struct {
	Kind RemapKind

	// NewName is the field's name in the rendered output (Rename).
	NewName string
	// Literal is a precomputed value to substitute (Value).
	Literal codec.Value
	// Sub is a sub-traversal whose collected results replace the field
	// (Traversal); left unevaluated until render time so a single
	// ResponseRemapping can be built while still iterating the pipeline.
	Sub func() ([]traversal.Value, error)
	// Nested holds a field-by-field remapping applied to an embedded
	// object value (Object).
	Nested ResponseRemapping
}

// RemapKind discriminates which field of Remapping is meaningful.
type RemapKind uint8

const (
	// Exclude hides the field entirely from the rendered output.
	Exclude RemapKind = iota
	// Rename exposes the field under NewName instead of its declared name.
	Rename
	// ValueRemap substitutes Literal for the field's stored value.
	ValueRemap
	// TraversalRemap replaces the field with the result of running Sub.
	TraversalRemap
	// ObjectRemap applies Nested to the field's own object value.
	ObjectRemap
)

// ExcludeField hides fieldName from the rendered element.
func ExcludeField() Remapping { return Remapping{Kind: Exclude} }

// RenameField exposes a field under a new name.
func RenameField(newName string) Remapping { return Remapping{Kind: Rename, NewName: newName} }

// ValueField substitutes a literal value for a field.
func ValueField(v codec.Value) Remapping { return Remapping{Kind: ValueRemap, Literal: v} }

// TraversalField replaces a field with the collected result of a
// sub-traversal, run lazily at render time.
func TraversalField(run func() ([]traversal.Value, error)) Remapping {
	return Remapping{Kind: TraversalRemap, Sub: run}
}

// ObjectField applies a nested remapping to a field whose stored value is
// itself an object.
func ObjectField(nested ResponseRemapping) Remapping {
	return Remapping{Kind: ObjectRemap, Nested: nested}
}

// ResponseRemapping maps a field name to the directive that governs how it
// is rendered.
type ResponseRemapping map[string]Remapping

// Channel is the per-request remapping side channel: a map from element id
// to its ResponseRemapping, guarded for concurrent insertion. It is owned
// by the handler invocation that runs a query, not by the traversal
// pipeline, so the pipeline never holds a reference back to it — avoiding
// the cyclic reference a pipeline-owned channel would create when a
// remapped field itself runs a sub-traversal over the same transaction.
type Channel struct {
	mu      sync.Mutex
	entries map[ids.ID]ResponseRemapping
}

// NewChannel returns an empty remapping channel.
func NewChannel() *Channel {
	return &Channel{entries: make(map[ids.ID]ResponseRemapping)}
}

// Set records (or replaces) the remapping for id. Called by the pipeline's
// map/select step while it iterates, hence the channel needing its own
// lock rather than relying on single-threaded access.
func (c *Channel) Set(id ids.ID, r ResponseRemapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = r
}

// SetField records a single field's remapping for id, merging into any
// ResponseRemapping already present.
func (c *Channel) SetField(id ids.ID, field string, r Remapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.entries[id]
	if !ok {
		existing = make(ResponseRemapping)
		c.entries[id] = existing
	}
	existing[field] = r
}

// SetFieldsFor merges every entry of fields into v's recorded remapping,
// keyed by v's own id. A no-op for a scalar value, which has no id to key
// on and is never subject to field projection.
func (c *Channel) SetFieldsFor(v traversal.Value, fields map[string]Remapping) {
	if v.Kind == traversal.KindScalar || len(fields) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := v.ID()
	existing, ok := c.entries[id]
	if !ok {
		existing = make(ResponseRemapping, len(fields))
		c.entries[id] = existing
	}
	for name, r := range fields {
		existing[name] = r
	}
}

// Get returns the remapping recorded for id, if any.
func (c *Channel) Get(id ids.ID) (ResponseRemapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[id]
	return r, ok
}
