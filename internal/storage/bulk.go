package storage

import (
	"fmt"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
)

// BulkNodeInput is one record in a BulkAddNodes batch.
type BulkNodeInput struct {
	ID            *ids.ID
	Label         string
	Properties    map[string]codec.Value
	IndexedFields []string
}

// BulkAddNodes creates every node in batch within this transaction,
// stopping at the first error. Grounded on straga-Mimir_lite's
// bulk-insert path (pkg/storage/badger.go), which favors one big
// transaction over one-transaction-per-record for throughput; callers that
// need multiple transactions' worth of nodes chunk the slice themselves
// and call this once per chunk: nodes load in one pass, edges in a second,
// so every edge's endpoints already exist by the time it is created.
func (t *Txn) BulkAddNodes(batch []BulkNodeInput) ([]*codec.Node, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	out := make([]*codec.Node, 0, len(batch))
	for i, in := range batch {
		opts := CreateNodeOptions{ID: in.ID}
		n, err := t.CreateNode(in.Label, in.Properties, in.IndexedFields, opts)
		if err != nil {
			return nil, fmt.Errorf("storage: bulk add node[%d]: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// BulkEdgeInput is one record in a BulkAddEdges batch.
type BulkEdgeInput struct {
	ID             *ids.ID
	Label          string
	From, To       ids.ID
	Class          codec.EdgeClass
	Properties     map[string]codec.Value
	IndexedFields  []string
	CheckEndpoints bool
}

// BulkAddEdges creates every edge in batch within this transaction. Pass
// CheckEndpoints=false once the caller already knows every endpoint
// exists — the expected case after a preceding BulkAddNodes pass within
// the same load — to skip a redundant existence lookup per edge.
func (t *Txn) BulkAddEdges(batch []BulkEdgeInput) ([]*codec.Edge, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	out := make([]*codec.Edge, 0, len(batch))
	for i, in := range batch {
		opts := CreateEdgeOptions{CheckEndpoints: in.CheckEndpoints}
		if in.ID != nil {
			opts.ID = *in.ID
		}
		e, err := t.CreateEdge(in.Label, in.From, in.To, in.Properties, in.Class, in.IndexedFields, opts)
		if err != nil {
			return nil, fmt.Errorf("storage: bulk add edge[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
