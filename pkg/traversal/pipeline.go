package traversal

import (
	"fmt"

	"github.com/helixdb/helix/internal/storage"
)

// Pipeline is one traversal chain bound to a single transaction. Every
// step method returns a new Pipeline wrapping the previous one's
// Iterator; none of them touch storage until Collect, Next, or a
// terminal step (Count, Update, Drop) pulls the chain.
type Pipeline struct {
	txn *storage.Txn
	it  Iterator
	err error
}

func newPipeline(txn *storage.Txn, it Iterator) *Pipeline {
	return &Pipeline{txn: txn, it: it}
}

func fail(txn *storage.Txn, err error) *Pipeline {
	return &Pipeline{txn: txn, it: errIterator(err)}
}

// FromValues starts a new pipeline over values already collected earlier
// in the same transaction, letting a handler resume chaining steps off a
// bound variable (e.g. `u <- N<User> ... u::Out<Knows>`) without
// re-running the traversal that produced it.
func FromValues(txn *storage.Txn, values []Value) *Pipeline {
	return newPipeline(txn, newSliceIterator(values))
}

// Next pulls the next value off the pipeline.
func (p *Pipeline) Next() (Value, bool, error) {
	if p.err != nil {
		return Value{}, false, p.err
	}
	v, ok, err := p.it.Next()
	if err != nil {
		p.err = err
	}
	return v, ok, err
}

// Close releases every resource the pipeline's steps hold (badger
// iterators in particular). Safe to call on a partially- or
// fully-consumed pipeline.
func (p *Pipeline) Close() {
	if p.it != nil {
		p.it.Close()
	}
}

// Collect pulls every remaining value and returns them as a slice,
// closing the pipeline when done. The terminal operation most query
// handlers built by pkg/codegen end on.
func (p *Pipeline) Collect() ([]Value, error) {
	defer p.Close()
	var out []Value
	for {
		v, ok, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Err returns the first error the pipeline encountered, if any.
func (p *Pipeline) Err() error { return p.err }

// chain wraps the pipeline's current iterator with a new one produced by
// build, which receives the upstream iterator to pull from.
func (p *Pipeline) chain(build func(upstream Iterator) Iterator) *Pipeline {
	if p.err != nil {
		return p
	}
	return &Pipeline{txn: p.txn, it: build(p.it)}
}

// requireKind wraps a step that only makes sense for one Value.Kind,
// surfacing a descriptive error instead of a nil-pointer panic when a
// query mixes step types the analyzer should have rejected earlier.
func requireKind(v Value, want Kind, step string) error {
	if v.Kind != want {
		return fmt.Errorf("traversal: %s requires a %v value, got %v", step, want, v.Kind)
	}
	return nil
}

