package traversal

import (
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
)

// neighborValue resolves an AdjCursor's current far endpoint into a
// Value, dispatching to node or vector depending on what NeighborCursor
// actually found.
func neighborValue(nc *storage.NeighborCursor) Value {
	if v := nc.Vector(); v != nil {
		return VectorValue(v, 0)
	}
	return NodeValue(nc.Node())
}

// Out advances each node in the pipeline to its out-neighbors via edges
// with the given label ("" for any label) (traversal step out).
func (p *Pipeline) Out(edgeLabel string) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var cur *storage.NeighborCursor
		return &funcIterator{
			next: stepNext(p.txn, upstream, &cur,
				func(v Value) (*storage.NeighborCursor, error) {
					if err := requireKind(v, KindNode, "out"); err != nil {
						return nil, err
					}
					return p.txn.OutNeighbors(v.Node.ID, edgeLabel), nil
				},
				func(c *storage.NeighborCursor) (Value, bool, error) {
					if !c.Next() {
						return Value{}, false, c.Err()
					}
					return neighborValue(c), true, nil
				}),
			close: func() {
				if cur != nil {
					cur.Close()
				}
			},
		}
	})
}

// In advances each node in the pipeline to its in-neighbors (traversal
// step in).
func (p *Pipeline) In(edgeLabel string) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var cur *storage.NeighborCursor
		return &funcIterator{
			next: stepNext(p.txn, upstream, &cur,
				func(v Value) (*storage.NeighborCursor, error) {
					if err := requireKind(v, KindNode, "in"); err != nil {
						return nil, err
					}
					return p.txn.InNeighbors(v.Node.ID, edgeLabel), nil
				},
				func(c *storage.NeighborCursor) (Value, bool, error) {
					if !c.Next() {
						return Value{}, false, c.Err()
					}
					return neighborValue(c), true, nil
				}),
			close: func() {
				if cur != nil {
					cur.Close()
				}
			},
		}
	})
}

// OutE advances each node to its outgoing edges themselves, rather than
// the neighbor they reach (traversal step out_e).
func (p *Pipeline) OutE(edgeLabel string) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var cur *storage.AdjCursor
		return &funcIterator{
			next: stepNext(p.txn, upstream, &cur,
				func(v Value) (*storage.AdjCursor, error) {
					if err := requireKind(v, KindNode, "out_e"); err != nil {
						return nil, err
					}
					return p.txn.OutEdges(v.Node.ID, edgeLabel), nil
				},
				func(c *storage.AdjCursor) (Value, bool, error) {
					if !c.Next() {
						return Value{}, false, c.Err()
					}
					return EdgeValue(c.Edge()), true, nil
				}),
			close: func() {
				if cur != nil {
					cur.Close()
				}
			},
		}
	})
}

// InE advances each node to its incoming edges (traversal step in_e).
func (p *Pipeline) InE(edgeLabel string) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var cur *storage.AdjCursor
		return &funcIterator{
			next: stepNext(p.txn, upstream, &cur,
				func(v Value) (*storage.AdjCursor, error) {
					if err := requireKind(v, KindNode, "in_e"); err != nil {
						return nil, err
					}
					return p.txn.InEdges(v.Node.ID, edgeLabel), nil
				},
				func(c *storage.AdjCursor) (Value, bool, error) {
					if !c.Next() {
						return Value{}, false, c.Err()
					}
					return EdgeValue(c.Edge()), true, nil
				}),
			close: func() {
				if cur != nil {
					cur.Close()
				}
			},
		}
	})
}

// FromN resolves each edge in the pipeline to its source node (traversal
// step from_n).
func (p *Pipeline) FromN() *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		return &funcIterator{next: func() (Value, bool, error) {
			v, ok, err := upstream.Next()
			if err != nil || !ok {
				return Value{}, false, err
			}
			if err := requireKind(v, KindEdge, "from_n"); err != nil {
				return Value{}, false, err
			}
			n, err := p.txn.GetNode(v.Edge.From)
			if err != nil {
				return Value{}, false, err
			}
			return NodeValue(n), true, nil
		}}
	})
}

// ToN resolves each edge in the pipeline to its destination node
// (traversal step to_n).
func (p *Pipeline) ToN() *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		return &funcIterator{next: func() (Value, bool, error) {
			v, ok, err := upstream.Next()
			if err != nil || !ok {
				return Value{}, false, err
			}
			if err := requireKind(v, KindEdge, "to_n"); err != nil {
				return Value{}, false, err
			}
			n, err := p.txn.GetNode(v.Edge.To)
			if err != nil {
				return Value{}, false, err
			}
			return NodeValue(n), true, nil
		}}
	})
}

// Both advances each node to every neighbor reachable in either
// direction via edges with the given label (traversal step both), an
// undirected convenience step alongside the directed Out/In pair.
func (p *Pipeline) Both(edgeLabel string) *Pipeline {
	return p.bothDirectional(edgeLabel, func(nc *storage.NeighborCursor) Value { return neighborValue(nc) })
}

func (p *Pipeline) bothDirectional(edgeLabel string, resolve func(*storage.NeighborCursor) Value) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var out, in *storage.NeighborCursor
		usingOut := true
		return &funcIterator{
			next: func() (Value, bool, error) {
				for {
					if usingOut {
						if out == nil {
							v, ok, err := upstream.Next()
							if err != nil || !ok {
								return Value{}, false, err
							}
							if err := requireKind(v, KindNode, "both"); err != nil {
								return Value{}, false, err
							}
							out = p.txn.OutNeighbors(v.Node.ID, edgeLabel)
							in = p.txn.InNeighbors(v.Node.ID, edgeLabel)
						}
						if out.Next() {
							return resolve(out), true, nil
						}
						if err := out.Err(); err != nil {
							return Value{}, false, err
						}
						out.Close()
						out = nil
						usingOut = false
						continue
					}
					if in.Next() {
						return resolve(in), true, nil
					}
					if err := in.Err(); err != nil {
						return Value{}, false, err
					}
					in.Close()
					in = nil
					usingOut = true
				}
			},
			close: func() {
				if out != nil {
					out.Close()
				}
				if in != nil {
					in.Close()
				}
			},
		}
	})
}

// BothE advances each node to every incident edge in either direction
// (traversal step both_e).
func (p *Pipeline) BothE(edgeLabel string) *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var out, in *storage.AdjCursor
		usingOut := true
		return &funcIterator{
			next: func() (Value, bool, error) {
				for {
					if usingOut {
						if out == nil {
							v, ok, err := upstream.Next()
							if err != nil || !ok {
								return Value{}, false, err
							}
							if err := requireKind(v, KindNode, "both_e"); err != nil {
								return Value{}, false, err
							}
							out = p.txn.OutEdges(v.Node.ID, edgeLabel)
							in = p.txn.InEdges(v.Node.ID, edgeLabel)
						}
						if out.Next() {
							return EdgeValue(out.Edge()), true, nil
						}
						if err := out.Err(); err != nil {
							return Value{}, false, err
						}
						out.Close()
						out = nil
						usingOut = false
						continue
					}
					if in.Next() {
						return EdgeValue(in.Edge()), true, nil
					}
					if err := in.Err(); err != nil {
						return Value{}, false, err
					}
					in.Close()
					in = nil
					usingOut = true
				}
			},
			close: func() {
				if out != nil {
					out.Close()
				}
				if in != nil {
					in.Close()
				}
			},
		}
	})
}

// BothV resolves each edge to both of its endpoints, node then vector
// where applicable (traversal step both_v).
func (p *Pipeline) BothV() *Pipeline {
	return p.chain(func(upstream Iterator) Iterator {
		var pending []Value
		return &funcIterator{next: func() (Value, bool, error) {
			for len(pending) == 0 {
				v, ok, err := upstream.Next()
				if err != nil || !ok {
					return Value{}, false, err
				}
				if err := requireKind(v, KindEdge, "both_v"); err != nil {
					return Value{}, false, err
				}
				from, err := resolveEndpoint(p.txn, v.Edge.From)
				if err != nil {
					return Value{}, false, err
				}
				to, err := resolveEndpoint(p.txn, v.Edge.To)
				if err != nil {
					return Value{}, false, err
				}
				pending = []Value{from, to}
			}
			v := pending[0]
			pending = pending[1:]
			return v, true, nil
		}}
	})
}

// resolveEndpoint loads id as a node, falling back to a vector lookup —
// an edge's endpoint may be either.
func resolveEndpoint(txn *storage.Txn, id ids.ID) (Value, error) {
	n, err := txn.GetNode(id)
	if err == nil {
		return NodeValue(n), nil
	}
	if err != storage.ErrNotFound {
		return Value{}, err
	}
	v, err := txn.GetVector(id)
	if err != nil {
		return Value{}, err
	}
	return VectorValue(v, 0), nil
}

// stepNext implements the common "resolve a per-item sub-cursor, drain
// it, advance upstream when it's empty" shape shared by Out/In/OutE/InE.
func stepNext[C any](txn *storage.Txn, upstream Iterator, cur **C, open func(Value) (*C, error), pull func(*C) (Value, bool, error)) func() (Value, bool, error) {
	return func() (Value, bool, error) {
		for {
			if *cur == nil {
				v, ok, err := upstream.Next()
				if err != nil || !ok {
					return Value{}, false, err
				}
				c, err := open(v)
				if err != nil {
					return Value{}, false, err
				}
				*cur = c
			}
			val, ok, err := pull(*cur)
			if err != nil {
				return Value{}, false, err
			}
			if ok {
				return val, true, nil
			}
			*cur = nil
		}
	}
}

