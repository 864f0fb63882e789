package storage

import (
	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
)

// PathStep is one hop of a resolved shortest path: the edge traversed and
// the node/vector it arrives at.
type PathStep struct {
	Edge *codec.Edge
	Node *codec.Node // nil when the hop lands on a vector
	Vec  *codec.Vector
}

// ShortestPath runs an unweighted BFS over the outgoing-adjacency graph
// from src to dst, optionally narrowed to a single edge label, and
// resolves the parent-pointer chain back into a concrete path. Grounded
// on the adjacency-scan primitives above; the algorithm itself is the
// textbook BFS-with-parent-map shape, generalized here to HelixDB's
// node/vector mixed endpoints.
func (t *Txn) ShortestPath(src, dst ids.ID, edgeLabel string) ([]PathStep, error) {
	if src == dst {
		return nil, nil
	}

	type parent struct {
		node ids.ID
		via  *codec.Edge
	}
	visited := map[ids.ID]parent{src: {}}
	queue := []ids.ID{src}

	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]

		c := t.OutEdges(cur, edgeLabel)
		for c.Next() {
			e := c.Edge()
			next := e.To
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = parent{node: cur, via: e}
			if next == dst {
				found = true
				c.Close()
				break
			}
			queue = append(queue, next)
		}
		if err := c.Err(); err != nil {
			c.Close()
			return nil, err
		}
		c.Close()
	}

	if _, ok := visited[dst]; !ok {
		return nil, ErrNoPath
	}

	var revSteps []PathStep
	cur := dst
	for cur != src {
		p := visited[cur]
		step := PathStep{Edge: p.via}
		if n, err := t.GetNode(cur); err == nil {
			step.Node = n
		} else if v, verr := t.GetVector(cur); verr == nil {
			step.Vec = v
		} else {
			return nil, err
		}
		revSteps = append(revSteps, step)
		cur = p.node
	}

	steps := make([]PathStep, len(revSteps))
	for i, s := range revSteps {
		steps[len(revSteps)-1-i] = s
	}
	return steps, nil
}
