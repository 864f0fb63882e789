package traversal

import "github.com/helixdb/helix/internal/codec"

// FilterRef keeps only the values for which predicate returns true
// (traversal step filter_ref — named for the fact that codegen compiles
// each query's filter expression into a closure over that query's bound
// variables, rather than this package interpreting an expression tree
// itself).
func (p *Pipeline) FilterRef(predicate func(Value) (bool, error)) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		return &funcIterator{next: func() (Value, bool, error) {
			for {
				v, ok, err := upstream.Next()
				if err != nil || !ok {
					return Value{}, false, err
				}
				keep, err := predicate(v)
				if err != nil {
					return Value{}, false, err
				}
				if keep {
					return v, true, nil
				}
			}
		}}
	})
}

// Range keeps only values at offsets [start, end) (traversal step
// range), counting from 0 over what this step itself has seen so far —
// not the upstream's total size, which may be unknown or infinite.
func (p *Pipeline) Range(start, end int) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		i := 0
		return &funcIterator{next: func() (Value, bool, error) {
			for i < start {
				_, ok, err := upstream.Next()
				if err != nil || !ok {
					return Value{}, false, err
				}
				i++
			}
			if i >= end {
				return Value{}, false, nil
			}
			v, ok, err := upstream.Next()
			if err != nil || !ok {
				return Value{}, false, err
			}
			i++
			return v, true, nil
		}}
	})
}

// Dedup removes values whose id has already been seen earlier in this
// pipeline (traversal step dedup). Buffers a seen-set, not the whole
// input; still pull-based in that nothing downstream blocks until a
// unique value is pulled.
func (p *Pipeline) Dedup() *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		seen := make(map[string]struct{})
		return &funcIterator{next: func() (Value, bool, error) {
			for {
				v, ok, err := upstream.Next()
				if err != nil || !ok {
					return Value{}, false, err
				}
				if v.Kind == KindScalar {
					return v, true, nil
				}
				key := v.ID().String()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				return v, true, nil
			}
		}}
	})
}

// Count drains the pipeline and replaces it with a single scalar value
// holding the number of items seen (traversal step count).
func (p *Pipeline) Count() *Pipeline {
	n, err := 0, error(nil)
	for {
		_, ok, e := p.Next()
		if e != nil {
			err = e
			break
		}
		if !ok {
			break
		}
		n++
	}
	p.Close()
	if err != nil {
		return fail(p.txn, err)
	}
	return newPipeline(p.txn, newSliceIterator([]Value{ScalarValue(codec.Int(codec.KindI64, int64(n)))}))
}
