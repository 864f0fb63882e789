// Package vector implements HelixDB's in-memory vector similarity index:
// the runtime structure search_v queries against, separate from the
// durable vector records internal/storage persists. Adapted from
// straga-Mimir_lite's pkg/search/vector_index.go (exact brute-force
// cosine search over normalized vectors), generalized to HelixDB's
// per-label schema (each vector label can declare its own dimensionality
// and similarity metric) and to ids.ID keys instead of opaque strings.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vecmath"
)

// ErrDimensionMismatch is returned when a vector's length doesn't match
// the dimensionality its label was registered with.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// ErrUnknownLabel is returned when a label has not been registered via
// EnsureLabel (directly, or indirectly through Insert).
var ErrUnknownLabel = errors.New("vector: label not registered")

// Result is one ranked hit from Search.
type Result struct {
	ID    ids.ID
	Score float64
}

// Index is a set of per-label brute-force similarity indices, one per
// vector label declared in schema. Every exported method is safe for
// concurrent use.
type Index struct {
	mu     sync.RWMutex
	labels map[string]*labelIndex
}

type labelIndex struct {
	mu         sync.RWMutex
	dimensions int
	metric     vecmath.Metric
	vectors    map[ids.ID][]float64
}

// New creates an empty Index.
func New() *Index {
	return &Index{labels: make(map[string]*labelIndex)}
}

// EnsureLabel registers label with the given dimensionality and metric,
// or validates that an existing registration matches. Called once per
// label from schema load, and implicitly by Insert for labels not yet
// seen.
func (idx *Index) EnsureLabel(label string, dimensions int, metric vecmath.Metric) (*labelIndex, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	li, ok := idx.labels[label]
	if !ok {
		li = &labelIndex{dimensions: dimensions, metric: metric, vectors: make(map[ids.ID][]float64)}
		idx.labels[label] = li
		return li, nil
	}
	if li.dimensions != dimensions {
		return nil, fmt.Errorf("%w: label %q registered with %d dimensions, got %d", ErrDimensionMismatch, label, li.dimensions, dimensions)
	}
	return li, nil
}

// Insert adds or replaces the vector for id under label, normalizing it
// for fast cosine/dot comparison at search time (vecmath.Normalize is
// idempotent-neutral for euclidean, which recomputes raw distance anyway).
func (idx *Index) Insert(label string, id ids.ID, embedding []float64) error {
	li, err := idx.EnsureLabel(label, len(embedding), vecmath.MetricCosine)
	if err != nil {
		return err
	}
	if len(embedding) != li.dimensions {
		return fmt.Errorf("%w: label %q expects %d dimensions, got %d", ErrDimensionMismatch, label, li.dimensions, len(embedding))
	}
	li.mu.Lock()
	defer li.mu.Unlock()
	li.vectors[id] = vecmath.Normalize(embedding)
	return nil
}

// Remove drops id from label's index. A no-op if id isn't present.
func (idx *Index) Remove(label string, id ids.ID) {
	idx.mu.RLock()
	li, ok := idx.labels[label]
	idx.mu.RUnlock()
	if !ok {
		return
	}
	li.mu.Lock()
	delete(li.vectors, id)
	li.mu.Unlock()
}

// Search ranks every vector registered under label against query,
// returning at most limit results with score >= minScore, highest score
// first. Honors ctx cancellation during the brute-force scan.
func (idx *Index) Search(ctx context.Context, label string, query []float64, limit int, minScore float64) ([]Result, error) {
	idx.mu.RLock()
	li, ok := idx.labels[label]
	idx.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if len(query) != li.dimensions {
		return nil, fmt.Errorf("%w: label %q expects %d dimensions, got %d", ErrDimensionMismatch, label, li.dimensions, len(query))
	}

	li.mu.RLock()
	defer li.mu.RUnlock()

	normQuery := vecmath.Normalize(query)
	results := make([]Result, 0, len(li.vectors))
	for id, vec := range li.vectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var score float64
		if li.metric == vecmath.MetricCosine {
			score = vecmath.DotProduct(normQuery, vec)
		} else {
			score = vecmath.Similarity(li.metric, query, vec)
		}
		if score >= minScore {
			results = append(results, Result{ID: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of vectors registered under label.
func (idx *Index) Count(label string) int {
	idx.mu.RLock()
	li, ok := idx.labels[label]
	idx.mu.RUnlock()
	if !ok {
		return 0
	}
	li.mu.RLock()
	defer li.mu.RUnlock()
	return len(li.vectors)
}

// Has reports whether id is registered under label.
func (idx *Index) Has(label string, id ids.ID) bool {
	idx.mu.RLock()
	li, ok := idx.labels[label]
	idx.mu.RUnlock()
	if !ok {
		return false
	}
	li.mu.RLock()
	defer li.mu.RUnlock()
	_, ok = li.vectors[id]
	return ok
}

// Rebuild repopulates label's index from every durable vector record the
// storage engine holds for it, discarding whatever was previously
// indexed in memory. Called once at startup per declared vector label,
// since the index itself is not persisted (only the records in
// internal/storage are durable).
func (idx *Index) Rebuild(e *storage.Engine, label string, metric vecmath.Metric) error {
	return e.View(func(txn *storage.Txn) error {
		c := txn.VectorsByLabel(label)
		defer c.Close()

		var fresh *labelIndex
		for c.Next() {
			v := c.Vector()
			if fresh == nil {
				li, err := idx.EnsureLabel(label, len(v.Embedding), metric)
				if err != nil {
					return err
				}
				fresh = li
			}
			if err := idx.Insert(label, v.ID, v.Embedding); err != nil {
				return fmt.Errorf("storage: rebuild vector index for %s/%s: %w", label, v.ID, err)
			}
		}
		return c.Err()
	})
}
