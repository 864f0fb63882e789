package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/kv"
)

// CreateVectorRecordOptions controls optional behavior of
// CreateVectorRecord.
type CreateVectorRecordOptions struct {
	ID *ids.ID
}

// CreateVectorRecord writes a vector's primary record and label-index
// entry. It does not maintain an ANN index itself — internal/vector reads
// and writes these records directly through the same Engine and layers
// its similarity index on top.
func (t *Txn) CreateVectorRecord(label string, embedding []float64, props map[string]codec.Value, opts CreateVectorRecordOptions) (*codec.Vector, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	if label == "" {
		return nil, ErrLabelRequired
	}

	id := ids.New()
	if opts.ID != nil {
		id = *opts.ID
		exists, err := t.VectorExists(id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAlreadyExists
		}
	}

	v := &codec.Vector{ID: id, Label: label, Embedding: embedding, Properties: props}
	if err := t.bt.Set(kv.VectorKey(id), codec.EncodeVector(v)); err != nil {
		return nil, fmt.Errorf("storage: create vector: %w", err)
	}
	if err := t.bt.Set(kv.VecLabelKey(label, id), nil); err != nil {
		return nil, fmt.Errorf("storage: create vector label index: %w", err)
	}
	return v, nil
}

// GetVector loads a vector record by id.
func (t *Txn) GetVector(id ids.ID) (*codec.Vector, error) {
	item, err := t.bt.Get(kv.VectorKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get vector: %w", err)
	}
	var v *codec.Vector
	err = item.Value(func(val []byte) error {
		decoded, derr := codec.DecodeVector(val)
		if derr != nil {
			return fmt.Errorf("storage: decode vector %s: %w", id, derr)
		}
		v = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// VectorExists reports whether id names a live vector record.
func (t *Txn) VectorExists(id ids.ID) (bool, error) {
	_, err := t.bt.Get(kv.VectorKey(id))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: vector exists: %w", err)
	}
	return true, nil
}

// DropVectorRecord removes a vector's primary record, label index, and
// every edge incident to it. The caller is responsible for also removing
// the id from internal/vector's similarity index.
func (t *Txn) DropVectorRecord(id ids.ID) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	v, err := t.GetVector(id)
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

	if err := t.bt.Delete(kv.VecLabelKey(v.Label, id)); err != nil {
		return fmt.Errorf("storage: drop vector label index: %w", err)
	}
	if err := t.bt.Delete(kv.VectorKey(id)); err != nil {
		return fmt.Errorf("storage: drop vector: %w", err)
	}
	return nil
}

// VectorsByLabel returns a lazy cursor over every vector with label.
func (t *Txn) VectorsByLabel(label string) *VectorCursor {
	prefix := kv.VecLabelPrefix(label)
	return &VectorCursor{txn: t, cur: newPrefixCursor(t.bt, prefix), prefixLen: len(prefix)}
}

// VectorCursor lazily enumerates vectors discovered via a label scan.
type VectorCursor struct {
	txn       *Txn
	cur       *prefixCursor
	prefixLen int

	cur_ *codec.Vector
	err  error
}

// Next advances the cursor, decoding the next vector.
func (c *VectorCursor) Next() bool {
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
	v, err := c.txn.GetVector(id)
	if err != nil {
		c.err = err
		return false
	}
	c.cur_ = v
	return true
}

// Vector returns the current item. Valid only after Next returns true.
func (c *VectorCursor) Vector() *codec.Vector { return c.cur_ }

// Err returns the first error encountered, if any.
func (c *VectorCursor) Err() error { return c.err }

// Close releases the underlying iterator.
func (c *VectorCursor) Close() { c.cur.Close() }
