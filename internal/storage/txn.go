package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/kv"
)

// Txn wraps a single badger transaction and exposes HelixDB's graph CRUD,
// adjacency, and index operations over it. A read Txn is backed by
// badger's MVCC snapshot; a write Txn serializes against all other
// writers.
type Txn struct {
	bt     *badger.Txn
	write  bool
	engine *Engine
}

// Writable reports whether this transaction may mutate records. Write
// adapters in pkg/traversal check this before calling a mutating method.
func (t *Txn) Writable() bool { return t.write }

func (t *Txn) requireWrite() error {
	if !t.write {
		return fmt.Errorf("storage: operation requires a write transaction")
	}
	return nil
}

// ---------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------

// CreateNodeOptions controls optional behavior of CreateNode.
type CreateNodeOptions struct {
	// ID overrides the generated id. Used by bulk load and by AddN<T>(...)
	// forms that supply an explicit id.
	ID *ids.ID
}

// CreateNode assigns an id (or uses opts.ID), writes the primary record,
// the label-index entry, and any secondary index entries the caller passes
// via indexedFields — all within this transaction.
func (t *Txn) CreateNode(label string, props map[string]codec.Value, indexedFields []string, opts CreateNodeOptions) (*codec.Node, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	if label == "" {
		return nil, ErrLabelRequired
	}

	id := ids.New()
	if opts.ID != nil {
		id = *opts.ID
		exists, err := t.NodeExists(id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAlreadyExists
		}
	}

	n := &codec.Node{ID: id, Label: label, Properties: props}
	if err := t.bt.Set(kv.NodeKey(id), codec.EncodeNode(n)); err != nil {
		return nil, fmt.Errorf("storage: create node: %w", err)
	}
	if err := t.bt.Set(kv.NodeLabelKey(label, id), nil); err != nil {
		return nil, fmt.Errorf("storage: create node label index: %w", err)
	}
	if err := t.writeSecondaryIndices(label, id, props, indexedFields); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNode loads a node by id.
func (t *Txn) GetNode(id ids.ID) (*codec.Node, error) {
	item, err := t.bt.Get(kv.NodeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get node: %w", err)
	}
	var n *codec.Node
	err = item.Value(func(val []byte) error {
		decoded, derr := codec.DecodeNode(val)
		if derr != nil {
			return fmt.Errorf("storage: decode node %s: %w", id, derr)
		}
		n = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NodeExists reports whether id names a live node.
func (t *Txn) NodeExists(id ids.ID) (bool, error) {
	_, err := t.bt.Get(kv.NodeKey(id))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: node exists: %w", err)
	}
	return true, nil
}

// UpdateNode diffs indexed fields and merges patch onto the existing
// properties, leaving any property patch doesn't name untouched.
// indexedFields lists the property names that carry a secondary index,
// supplied by the caller (the analyzer knows this from schema; the
// storage layer does not infer it).
func (t *Txn) UpdateNode(id ids.ID, patch map[string]codec.Value, indexedFields []string) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	existing, err := t.GetNode(id)
	if err != nil {
		return err
	}

	if err := t.diffSecondaryIndices(existing.Label, id, existing.Properties, patch, indexedFields); err != nil {
		return err
	}

	merged := make(map[string]codec.Value, len(existing.Properties)+len(patch))
	for k, v := range existing.Properties {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	existing.Properties = merged
	if err := t.bt.Set(kv.NodeKey(id), codec.EncodeNode(existing)); err != nil {
		return fmt.Errorf("storage: update node: %w", err)
	}
	return nil
}

// DropNode removes a node and every edge incident to it: outgoing and
// incoming adjacency are walked first so no edge ever survives the
// endpoint it references.
func (t *Txn) DropNode(id ids.ID) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	n, err := t.GetNode(id)
	if err != nil {
		return err
	}

	incident, err := t.incidentEdgeIDs(id)
	if err != nil {
		return err
	}
	for _, eid := range incident {
		if err := t.DropEdge(eid); err != nil && err != ErrNotFound {
			return err
		}
	}

	if err := t.removeSecondaryIndices(n.Label, id, n.Properties, nil); err != nil {
		return err
	}
	if err := t.bt.Delete(kv.NodeLabelKey(n.Label, id)); err != nil {
		return fmt.Errorf("storage: drop node label index: %w", err)
	}
	if err := t.bt.Delete(kv.NodeKey(id)); err != nil {
		return fmt.Errorf("storage: drop node: %w", err)
	}
	return nil
}

// incidentEdgeIDs collects every edge id touching node, in either
// direction, by walking both adjacency families.
func (t *Txn) incidentEdgeIDs(node ids.ID) ([]ids.ID, error) {
	var out []ids.ID
	for _, c := range []*AdjCursor{t.OutEdges(node, ""), t.InEdges(node, "")} {
		for c.Next() {
			out = append(out, c.EdgeID())
		}
		if err := c.Err(); err != nil {
			c.Close()
			return nil, err
		}
		c.Close()
	}
	return out, nil
}

// NodesByLabel returns a lazy cursor over every node with label, in id
// (chronological) order.
func (t *Txn) NodesByLabel(label string) *NodeCursor {
	prefix := kv.NodeLabelPrefix(label)
	return &NodeCursor{txn: t, cur: newPrefixCursor(t.bt, prefix), prefixLen: len(prefix)}
}

// NodesByIndex returns every node whose (label, field) property equals
// value, via the secondary index.
func (t *Txn) NodesByIndex(label, field string, value codec.Value) *NodeCursor {
	valBytes := codec.EncodeValue(nil, value)
	prefix := kv.SecondaryIndexPrefix(label, field, valBytes)
	return &NodeCursor{txn: t, cur: newPrefixCursor(t.bt, prefix), prefixLen: len(prefix), byIndex: true}
}

// ---------------------------------------------------------------------
// Edges
// ---------------------------------------------------------------------

// CreateEdgeOptions controls optional behavior of CreateEdge.
type CreateEdgeOptions struct {
	ID ids.ID // overrides the generated id when non-nil

	// CheckEndpoints requires both From and To to already exist (as a node
	// or, when Class is ClassVec, a vector). When false, the caller
	// asserts both endpoints already exist — the two-pass bulk-load shape
	// BulkAddEdges relies on.
	CheckEndpoints bool

	// FromLabel/ToLabel, when non-empty, are checked against the
	// endpoint's actual label. Left to the analyzer/codegen layer to
	// supply from schema; storage itself has no schema.
	FromLabel string
	ToLabel   string
}

// CreateEdge writes the edge's primary record, its label-index entry, and
// both adjacency entries — all in this transaction.
func (t *Txn) CreateEdge(label string, from, to ids.ID, props map[string]codec.Value, class codec.EdgeClass, indexedFields []string, opts CreateEdgeOptions) (*codec.Edge, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	if label == "" {
		return nil, ErrLabelRequired
	}

	if opts.CheckEndpoints {
		if err := t.checkEndpoint(from, class, opts.FromLabel); err != nil {
			return nil, err
		}
		if err := t.checkEndpoint(to, class, opts.ToLabel); err != nil {
			return nil, err
		}
	}

	id := ids.New()
	if !ids.IsNil(opts.ID) {
		id = opts.ID
		if exists, err := t.edgeExists(id); err != nil {
			return nil, err
		} else if exists {
			return nil, ErrAlreadyExists
		}
	}

	e := &codec.Edge{ID: id, Label: label, From: from, To: to, Class: class, Properties: props}
	if err := t.bt.Set(kv.EdgeKey(id), codec.EncodeEdge(e)); err != nil {
		return nil, fmt.Errorf("storage: create edge: %w", err)
	}
	if err := t.bt.Set(kv.EdgeLabelKey(label, id), nil); err != nil {
		return nil, fmt.Errorf("storage: create edge label index: %w", err)
	}

	endpointKind := kv.EndpointNode
	if class == codec.ClassVec {
		endpointKind = kv.EndpointVector
	}
	if err := t.bt.Set(kv.OutAdjKey(from, label, id), []byte{byte(endpointKind)}); err != nil {
		return nil, fmt.Errorf("storage: create out adjacency: %w", err)
	}
	if err := t.bt.Set(kv.InAdjKey(to, label, id), []byte{byte(endpointKind)}); err != nil {
		return nil, fmt.Errorf("storage: create in adjacency: %w", err)
	}
	if err := t.writeSecondaryIndices(label, id, props, indexedFields); err != nil {
		return nil, err
	}
	return e, nil
}

func (t *Txn) checkEndpoint(id ids.ID, class codec.EdgeClass, expectLabel string) error {
	if class == codec.ClassVec {
		exists, err := t.VectorExists(id)
		if err != nil {
			return err
		}
		if !exists {
			// A Vec-classified edge may still point at a node on one side
			// (e.g. node -> vector); fall back to a node check.
			nExists, nErr := t.NodeExists(id)
			if nErr != nil {
				return nErr
			}
			if !nExists {
				return ErrEndpointMissing
			}
		}
		return nil
	}

	n, err := t.GetNode(id)
	if err == ErrNotFound {
		return ErrEndpointMissing
	}
	if err != nil {
		return err
	}
	if expectLabel != "" && n.Label != expectLabel {
		return ErrLabelMismatch
	}
	return nil
}

func (t *Txn) edgeExists(id ids.ID) (bool, error) {
	_, err := t.bt.Get(kv.EdgeKey(id))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: edge exists: %w", err)
	}
	return true, nil
}

// GetEdge loads an edge by id.
func (t *Txn) GetEdge(id ids.ID) (*codec.Edge, error) {
	item, err := t.bt.Get(kv.EdgeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get edge: %w", err)
	}
	var e *codec.Edge
	err = item.Value(func(val []byte) error {
		decoded, derr := codec.DecodeEdge(val)
		if derr != nil {
			return fmt.Errorf("storage: decode edge %s: %w", id, derr)
		}
		e = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEdge diffs indexed fields and merges patch onto the existing
// properties, leaving any property patch doesn't name untouched.
func (t *Txn) UpdateEdge(id ids.ID, patch map[string]codec.Value, indexedFields []string) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	existing, err := t.GetEdge(id)
	if err != nil {
		return err
	}
	if err := t.diffSecondaryIndices(existing.Label, id, existing.Properties, patch, indexedFields); err != nil {
		return err
	}
	merged := make(map[string]codec.Value, len(existing.Properties)+len(patch))
	for k, v := range existing.Properties {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	existing.Properties = merged
	if err := t.bt.Set(kv.EdgeKey(id), codec.EncodeEdge(existing)); err != nil {
		return fmt.Errorf("storage: update edge: %w", err)
	}
	return nil
}

// DropEdge removes both adjacency entries, the label index, secondary
// indices, and the primary record, all within this transaction.
func (t *Txn) DropEdge(id ids.ID) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	e, err := t.GetEdge(id)
	if err != nil {
		return err
	}
	if err := t.bt.Delete(kv.OutAdjKey(e.From, e.Label, id)); err != nil {
		return fmt.Errorf("storage: drop out adjacency: %w", err)
	}
	if err := t.bt.Delete(kv.InAdjKey(e.To, e.Label, id)); err != nil {
		return fmt.Errorf("storage: drop in adjacency: %w", err)
	}
	if err := t.removeSecondaryIndices(e.Label, id, e.Properties, nil); err != nil {
		return err
	}
	if err := t.bt.Delete(kv.EdgeLabelKey(e.Label, id)); err != nil {
		return fmt.Errorf("storage: drop edge label index: %w", err)
	}
	if err := t.bt.Delete(kv.EdgeKey(id)); err != nil {
		return fmt.Errorf("storage: drop edge: %w", err)
	}
	return nil
}

// EdgesByLabel returns a lazy cursor over every edge with label.
func (t *Txn) EdgesByLabel(label string) *EdgeCursor {
	prefix := kv.EdgeLabelPrefix(label)
	return &EdgeCursor{txn: t, cur: newPrefixCursor(t.bt, prefix), prefixLen: len(prefix)}
}

// OutEdges returns a lazy cursor over src's outgoing edges, optionally
// narrowed to a single label.
func (t *Txn) OutEdges(src ids.ID, edgeLabel string) *AdjCursor {
	return t.adjCursor(kv.RoleOutAdj, src, edgeLabel)
}

// InEdges returns a lazy cursor over dst's incoming edges, optionally
// narrowed to a single label.
func (t *Txn) InEdges(dst ids.ID, edgeLabel string) *AdjCursor {
	return t.adjCursor(kv.RoleInAdj, dst, edgeLabel)
}

func (t *Txn) adjCursor(role kv.Role, node ids.ID, edgeLabel string) *AdjCursor {
	var prefix []byte
	var nodePrefixLen int
	if role == kv.RoleOutAdj {
		nodePrefixLen = len(kv.OutAdjPrefix(node))
		if edgeLabel != "" {
			prefix = kv.OutAdjLabelPrefix(node, edgeLabel)
		} else {
			prefix = kv.OutAdjPrefix(node)
		}
	} else {
		nodePrefixLen = len(kv.InAdjPrefix(node))
		if edgeLabel != "" {
			prefix = kv.InAdjLabelPrefix(node, edgeLabel)
		} else {
			prefix = kv.InAdjPrefix(node)
		}
	}
	return &AdjCursor{
		txn:            t,
		cur:            newPrefixCursor(t.bt, prefix),
		nodePrefixLen:  nodePrefixLen,
		labelPrefixLen: len(prefix),
		filtered:       edgeLabel != "",
	}
}

// OutNeighbors returns a lazy cursor over the nodes/vectors reached by
// src's outgoing edges, optionally narrowed to a single edge label.
func (t *Txn) OutNeighbors(src ids.ID, edgeLabel string) *NeighborCursor {
	return &NeighborCursor{adj: t.OutEdges(src, edgeLabel), txn: t, far: farEnd(false)}
}

// InNeighbors returns a lazy cursor over the nodes/vectors reaching dst via
// an incoming edge, optionally narrowed to a single edge label.
func (t *Txn) InNeighbors(dst ids.ID, edgeLabel string) *NeighborCursor {
	return &NeighborCursor{adj: t.InEdges(dst, edgeLabel), txn: t, far: farEnd(true)}
}

// farEnd selects which endpoint of an edge record is the "far" node/vector
// relative to the adjacency family being walked: the To side for outgoing
// adjacency, the From side for incoming adjacency.
func farEnd(incoming bool) func(e *codec.Edge) ids.ID {
	if incoming {
		return func(e *codec.Edge) ids.ID { return e.From }
	}
	return func(e *codec.Edge) ids.ID { return e.To }
}
