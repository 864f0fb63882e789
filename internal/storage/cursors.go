package storage

import (
	"fmt"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/kv"
)

// NodeCursor lazily enumerates nodes discovered via a label or secondary
// index scan, decoding each primary record on demand — pkg/traversal's
// n_from_type and n_from_index source steps are thin adapters over this.
type NodeCursor struct {
	txn       *Txn
	cur       *prefixCursor
	prefixLen int
	byIndex   bool

	cur_ *codec.Node
	err  error
}

// Next advances the cursor, decoding the next node. Reports false at
// end-of-sequence or on error; callers must check Err after a false
// return.
func (c *NodeCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next() {
		return false
	}
	id, ok := kv.ExtractIndexID(c.cur.Key(), c.prefixLen)
	if !ok {
		c.err = fmt.Errorf("%w: malformed index key", ErrIntegrity)
		return false
	}
	n, err := c.txn.GetNode(id)
	if err != nil {
		c.err = err
		return false
	}
	c.cur_ = n
	return true
}

// Node returns the current item. Valid only after Next returns true.
func (c *NodeCursor) Node() *codec.Node { return c.cur_ }

// Err returns the first error encountered, if any.
func (c *NodeCursor) Err() error { return c.err }

// Close releases the underlying iterator.
func (c *NodeCursor) Close() { c.cur.Close() }

// EdgeCursor lazily enumerates edges discovered via a label scan.
type EdgeCursor struct {
	txn       *Txn
	cur       *prefixCursor
	prefixLen int

	cur_ *codec.Edge
	err  error
}

// Next advances the cursor, decoding the next edge.
func (c *EdgeCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next() {
		return false
	}
	id, ok := kv.ExtractIndexID(c.cur.Key(), c.prefixLen)
	if !ok {
		c.err = fmt.Errorf("%w: malformed index key", ErrIntegrity)
		return false
	}
	e, err := c.txn.GetEdge(id)
	if err != nil {
		c.err = err
		return false
	}
	c.cur_ = e
	return true
}

// Edge returns the current item. Valid only after Next returns true.
func (c *EdgeCursor) Edge() *codec.Edge { return c.cur_ }

// Err returns the first error encountered, if any.
func (c *EdgeCursor) Err() error { return c.err }

// Close releases the underlying iterator.
func (c *EdgeCursor) Close() { c.cur.Close() }

// AdjCursor lazily enumerates the edges in one adjacency family (out or
// in) for a single node, resolving each entry's edge id to its full edge
// record: when edge_label is given it scans the narrower label-qualified
// prefix, otherwise it scans the whole node prefix and filters by
// decoded label.
type AdjCursor struct {
	txn            *Txn
	cur            *prefixCursor
	nodePrefixLen  int
	labelPrefixLen int
	filtered       bool

	edgeID ids.ID
	edge   *codec.Edge
	err    error
}

// Next advances the cursor to the next matching adjacency entry and
// resolves its edge record.
func (c *AdjCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.cur.Next() {
		var edgeID ids.ID
		var ok bool
		if c.filtered {
			edgeID, ok = kv.ExtractAdjEdgeID(c.cur.Key(), c.labelPrefixLen)
		} else {
			_, edgeID, ok = kv.SplitAdjLabel(c.cur.Key(), c.nodePrefixLen)
		}
		if !ok {
			c.err = fmt.Errorf("%w: malformed adjacency key", ErrIntegrity)
			return false
		}
		e, err := c.txn.GetEdge(edgeID)
		if err != nil {
			c.err = fmt.Errorf("%w: adjacency entry references missing edge %s", ErrIntegrity, edgeID)
			return false
		}
		c.edgeID = edgeID
		c.edge = e
		return true
	}
	return false
}

// EdgeID returns the current entry's edge id. Valid only after Next
// returns true.
func (c *AdjCursor) EdgeID() ids.ID { return c.edgeID }

// Edge returns the current entry's full edge record. Valid only after
// Next returns true.
func (c *AdjCursor) Edge() *codec.Edge { return c.edge }

// Err returns the first error encountered, if any.
func (c *AdjCursor) Err() error { return c.err }

// Close releases the underlying iterator.
func (c *AdjCursor) Close() { c.cur.Close() }

// NeighborCursor adapts an AdjCursor into the node/vector reached by each
// edge, for out/in traversal steps that discard the edge itself.
type NeighborCursor struct {
	txn *Txn
	adj *AdjCursor
	far func(*codec.Edge) ids.ID

	node *codec.Node
	vec  *codec.Vector
	err  error
}

// Next advances to the next neighbor, loading whichever record type the
// far endpoint actually is.
func (c *NeighborCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.adj.Next() {
		if err := c.adj.Err(); err != nil {
			c.err = err
		}
		return false
	}
	far := c.far(c.adj.Edge())
	c.node = nil
	c.vec = nil
	if c.adj.Edge().Class == codec.ClassVec {
		v, err := c.txn.GetVector(far)
		if err == nil {
			c.vec = v
			return true
		}
		if err != ErrNotFound {
			c.err = err
			return false
		}
		// Fall through: a Vec-classified edge may still terminate at a node
		// on this side (node -> vector edges only tag one endpoint as a
		// vector).
	}
	n, err := c.txn.GetNode(far)
	if err != nil {
		c.err = err
		return false
	}
	c.node = n
	return true
}

// Node returns the current neighbor as a node, or nil if it is a vector.
func (c *NeighborCursor) Node() *codec.Node { return c.node }

// Vector returns the current neighbor as a vector, or nil if it is a node.
func (c *NeighborCursor) Vector() *codec.Vector { return c.vec }

// Err returns the first error encountered, if any.
func (c *NeighborCursor) Err() error { return c.err }

// Close releases the underlying adjacency cursor.
func (c *NeighborCursor) Close() { c.adj.Close() }
