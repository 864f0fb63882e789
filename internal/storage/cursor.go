package storage

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
)

// prefixCursor is the shared low-level primitive behind every lazy sequence
// the storage engine exposes: seek to a prefix, iterate while the key still
// matches it. Grounded on the adjacency-scan loops in
// straga-Mimir_lite/pkg/storage/badger.go (GetOutgoingEdges, GetNodesByLabel),
// generalized into a single reusable cursor instead of one copy-pasted loop
// per query shape.
type prefixCursor struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
	done    bool
	closed  bool
}

func newPrefixCursor(bt *badger.Txn, prefix []byte) *prefixCursor {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := bt.NewIterator(opts)
	return &prefixCursor{it: it, prefix: prefix}
}

// Next advances the cursor and reports whether a matching item is
// available. Callers must check Next before reading Key/Value.
func (c *prefixCursor) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.it.Seek(c.prefix)
		c.started = true
	} else {
		c.it.Next()
	}
	if !c.it.ValidForPrefix(c.prefix) {
		c.done = true
		c.closeIterator()
		return false
	}
	return true
}

// Key returns the current item's key. Valid only after Next returns true.
func (c *prefixCursor) Key() []byte {
	return c.it.Item().KeyCopy(nil)
}

// Value returns the current item's value. Valid only after Next returns
// true.
func (c *prefixCursor) Value() ([]byte, error) {
	return c.it.Item().ValueCopy(nil)
}

// Close releases the underlying badger iterator. Safe to call whether the
// cursor ran to exhaustion (Next already closed it) or is being abandoned
// early; pkg/traversal calls it whenever an adapter chain is torn down.
func (c *prefixCursor) Close() {
	c.closeIterator()
}

func (c *prefixCursor) closeIterator() {
	if !c.closed {
		c.it.Close()
		c.closed = true
	}
}

// hasPrefix reports whether b starts with prefix. Kept local instead of
// depending on bytes.HasPrefix at every call site for readability in the
// cursor wrappers below.
func hasPrefix(b, prefix []byte) bool {
	return bytes.HasPrefix(b, prefix)
}
