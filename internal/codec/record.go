package codec

import (
	"math"

	"github.com/helixdb/helix/internal/ids"
)

// EdgeClass classifies an edge at creation time: whether its endpoints are
// both graph nodes, or at least one is a vector. This determines which
// adjacency families the edge populates.
type EdgeClass byte

const (
	ClassNode EdgeClass = 0
	ClassVec  EdgeClass = 1
)

// Node is the storage-level record for a graph node.
type Node struct {
	ID         ids.ID
	Label      string
	Properties map[string]Value
}

// Edge is the storage-level record for a directed graph relationship.
type Edge struct {
	ID         ids.ID
	Label      string
	From       ids.ID
	To         ids.ID
	Class      EdgeClass
	Properties map[string]Value
}

// Vector is the storage-level record for an embedding.
type Vector struct {
	ID         ids.ID
	Label      string
	Embedding  []float64
	Properties map[string]Value
}

// EncodeNode serializes a Node record.
func EncodeNode(n *Node) []byte {
	w := &buffer{}
	idb := n.ID
	w.bytes(idb[:])
	w.lenPrefixed([]byte(n.Label))
	writeValue(w, Object(n.Properties))
	return w.b
}

// DecodeNode deserializes a Node record previously produced by EncodeNode.
func DecodeNode(data []byte) (*Node, error) {
	r := &reader{b: data}
	idb, err := r.take(16)
	if err != nil {
		return nil, err
	}
	var id [16]byte
	copy(id[:], idb)

	labelB, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}

	propsVal, err := readValue(r)
	if err != nil {
		return nil, err
	}

	return &Node{
		ID:         ids.ID(id),
		Label:      string(labelB),
		Properties: propsVal.Obj,
	}, nil
}

// EncodeEdge serializes an Edge record.
func EncodeEdge(e *Edge) []byte {
	w := &buffer{}
	idb := e.ID
	w.bytes(idb[:])
	w.lenPrefixed([]byte(e.Label))
	fromb := e.From
	w.bytes(fromb[:])
	tob := e.To
	w.bytes(tob[:])
	w.byte(byte(e.Class))
	writeValue(w, Object(e.Properties))
	return w.b
}

// DecodeEdge deserializes an Edge record previously produced by EncodeEdge.
func DecodeEdge(data []byte) (*Edge, error) {
	r := &reader{b: data}
	idb, err := r.take(16)
	if err != nil {
		return nil, err
	}
	var id [16]byte
	copy(id[:], idb)

	labelB, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}

	fromb, err := r.take(16)
	if err != nil {
		return nil, err
	}
	var from [16]byte
	copy(from[:], fromb)

	tob, err := r.take(16)
	if err != nil {
		return nil, err
	}
	var to [16]byte
	copy(to[:], tob)

	classB, err := r.byteVal()
	if err != nil {
		return nil, err
	}

	propsVal, err := readValue(r)
	if err != nil {
		return nil, err
	}

	return &Edge{
		ID:         ids.ID(id),
		Label:      string(labelB),
		From:       ids.ID(from),
		To:         ids.ID(to),
		Class:      EdgeClass(classB),
		Properties: propsVal.Obj,
	}, nil
}

// EncodeVector serializes a Vector record.
func EncodeVector(v *Vector) []byte {
	w := &buffer{}
	idb := v.ID
	w.bytes(idb[:])
	w.lenPrefixed([]byte(v.Label))
	w.varint(uint64(len(v.Embedding)))
	for _, f := range v.Embedding {
		w.u64(math.Float64bits(f))
	}
	writeValue(w, Object(v.Properties))
	return w.b
}

// DecodeVector deserializes a Vector record previously produced by
// EncodeVector.
func DecodeVector(data []byte) (*Vector, error) {
	r := &reader{b: data}
	idb, err := r.take(16)
	if err != nil {
		return nil, err
	}
	var id [16]byte
	copy(id[:], idb)

	labelB, err := r.lenPrefixed()
	if err != nil {
		return nil, err
	}

	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	embedding := make([]float64, n)
	for i := range embedding {
		u, err := r.u64()
		if err != nil {
			return nil, err
		}
		embedding[i] = math.Float64frombits(u)
	}

	propsVal, err := readValue(r)
	if err != nil {
		return nil, err
	}

	return &Vector{
		ID:         ids.ID(id),
		Label:      string(labelB),
		Embedding:  embedding,
		Properties: propsVal.Obj,
	}, nil
}
