// Package storage implements HelixDB's storage engine: CRUD for nodes,
// edges, and vectors, adjacency maintenance, secondary indices, bulk load,
// and shortest-path, over github.com/dgraph-io/badger/v4 as the
// transactional KV substrate.
//
// Grounded on straga-Mimir_lite's BadgerEngine (pkg/storage/badger.go),
// generalized from Neo4j's label-property model to HelixDB's typed
// node/edge/vector model with secondary indices.
package storage

import (
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"
)

// Engine owns the badger database and dispatches read/write transactions.
// A pipeline (pkg/traversal) borrows exactly one Txn for its whole
// lifetime; Engine itself is safe for concurrent use by many goroutines,
// each opening its own transaction.
type Engine struct {
	db     *badger.DB
	logger *log.Logger
}

// Options configures Engine construction.
type Options struct {
	// Dir is the directory badger stores its SST/value-log files in.
	Dir string

	// InMemory runs badger without touching disk. Useful for tests and
	// ephemeral query evaluation.
	InMemory bool

	// Logger receives operational messages (open/close/GC). Defaults to
	// the standard library's default logger when nil.
	Logger *log.Logger
}

// Open creates or opens a persistent Engine rooted at dir.
func Open(dir string) (*Engine, error) {
	return OpenWithOptions(Options{Dir: dir})
}

// OpenInMemory creates an Engine that never touches disk.
func OpenInMemory() (*Engine, error) {
	return OpenWithOptions(Options{InMemory: true})
}

// OpenWithOptions creates an Engine per opts.
func OpenWithOptions(opts Options) (*Engine, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil) // badger's own chatty logger is replaced below

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{db: db, logger: logger}, nil
}

// Close releases the underlying badger database.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return nil
}

// RunGC triggers badger's value-log garbage collection. Safe to call
// periodically from an external scheduler; this package never schedules
// it itself.
func (e *Engine) RunGC(discardRatio float64) error {
	err := e.db.RunValueLogGC(discardRatio)
	if err != nil && err != badger.ErrNoRewrite {
		return fmt.Errorf("storage: gc: %w", err)
	}
	return nil
}

// View runs fn inside a read-only transaction. All reads inside fn observe
// a single consistent snapshot.
func (e *Engine) View(fn func(txn *Txn) error) error {
	return e.db.View(func(bt *badger.Txn) error {
		return fn(&Txn{bt: bt, write: false, engine: e})
	})
}

// Update runs fn inside a read-write transaction. Writers serialize
// globally; a writer observes its own prior writes within the same
// transaction.
func (e *Engine) Update(fn func(txn *Txn) error) error {
	return e.db.Update(func(bt *badger.Txn) error {
		return fn(&Txn{bt: bt, write: true, engine: e})
	})
}

// Badger exposes the underlying *badger.DB for components (e.g. the vector
// index) that need to share the same KV substrate outside of a Txn, such as
// bulk-loading vectors in their own batched writer.
func (e *Engine) Badger() *badger.DB {
	return e.db
}
