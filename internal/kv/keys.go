// Package kv implements HelixDB's key codec: the encoding of every key
// family the storage engine writes into the underlying transactional KV
// substrate (github.com/dgraph-io/badger/v4).
//
// All keys share a single-byte role prefix, grounded on the prefix scheme in
// straga-Mimir_lite's BadgerEngine (prefixNode, prefixEdge, ...), generalized
// from Neo4j's label-property model to HelixDB's typed node/edge/vector
// model with secondary indices. Keys are designed so a structural match
// (same role, same leading id/label) is always a byte-prefix match, which
// lets every scan in internal/storage be a single cursor seek.
package kv

import (
	"bytes"

	"github.com/helixdb/helix/internal/ids"
)

// Role is the one-byte key-family discriminator.
type Role byte

const (
	RoleNode       Role = 0x01 // n: node_id -> encoded Node
	RoleEdge       Role = 0x02 // e: edge_id -> encoded Edge
	RoleVector     Role = 0x03 // v: vector_id -> encoded Vector
	RoleNodeLabel  Role = 0x04 // nl: label \x00 node_id -> empty
	RoleEdgeLabel  Role = 0x05 // el: label \x00 edge_id -> empty
	RoleVecLabel   Role = 0x06 // vl: label \x00 vector_id -> empty
	RoleOutAdj     Role = 0x07 // o: src_id edge_label \x00 edge_id -> endpoint kind byte
	RoleInAdj      Role = 0x08 // i: dst_id edge_label \x00 edge_id -> endpoint kind byte
	RoleSecondary  Role = 0x09 // x: label \x00 field \x00 value_bytes \x00 id -> empty
)

// EndpointKind tags which kind of record an adjacency entry's far endpoint
// resolves to, so traversal can dispatch to the node or vector store
// without a speculative double lookup, collapsing mixed node/vector
// adjacency into one pair of families distinguished by this tag.
type EndpointKind byte

const (
	EndpointNode   EndpointKind = 0
	EndpointVector EndpointKind = 1
)

const sep = byte(0x00)

func idBytes(id ids.ID) []byte {
	b := id // array value
	return b[:]
}

// NodeKey returns the primary-record key for a node.
func NodeKey(id ids.ID) []byte {
	return append([]byte{byte(RoleNode)}, idBytes(id)...)
}

// EdgeKey returns the primary-record key for an edge.
func EdgeKey(id ids.ID) []byte {
	return append([]byte{byte(RoleEdge)}, idBytes(id)...)
}

// VectorKey returns the primary-record key for a vector.
func VectorKey(id ids.ID) []byte {
	return append([]byte{byte(RoleVector)}, idBytes(id)...)
}

// NodeLabelKey returns the node-label-index key for (label, id).
func NodeLabelKey(label string, id ids.ID) []byte {
	return labelKey(RoleNodeLabel, label, id)
}

// NodeLabelPrefix returns the prefix enumerating every node with label.
func NodeLabelPrefix(label string) []byte {
	return labelPrefix(RoleNodeLabel, label)
}

// EdgeLabelKey returns the edge-label-index key for (label, id).
func EdgeLabelKey(label string, id ids.ID) []byte {
	return labelKey(RoleEdgeLabel, label, id)
}

// EdgeLabelPrefix returns the prefix enumerating every edge with label.
func EdgeLabelPrefix(label string) []byte {
	return labelPrefix(RoleEdgeLabel, label)
}

// VecLabelKey returns the vector-label-index key for (label, id).
func VecLabelKey(label string, id ids.ID) []byte {
	return labelKey(RoleVecLabel, label, id)
}

// VecLabelPrefix returns the prefix enumerating every vector with label.
func VecLabelPrefix(label string) []byte {
	return labelPrefix(RoleVecLabel, label)
}

func labelKey(role Role, label string, id ids.ID) []byte {
	k := labelPrefix(role, label)
	return append(k, idBytes(id)...)
}

func labelPrefix(role Role, label string) []byte {
	k := make([]byte, 0, 1+len(label)+1)
	k = append(k, byte(role))
	k = append(k, []byte(label)...)
	k = append(k, sep)
	return k
}

// OutAdjKey returns the outgoing-adjacency key for (src, edgeLabel, edgeID).
func OutAdjKey(src ids.ID, edgeLabel string, edgeID ids.ID) []byte {
	return adjKey(RoleOutAdj, src, edgeLabel, edgeID)
}

// OutAdjPrefix returns the prefix enumerating every outgoing edge of src,
// regardless of label.
func OutAdjPrefix(src ids.ID) []byte {
	return adjNodePrefix(RoleOutAdj, src)
}

// OutAdjLabelPrefix returns the prefix enumerating outgoing edges of src
// with a specific label — a narrower scan than OutAdjPrefix.
func OutAdjLabelPrefix(src ids.ID, edgeLabel string) []byte {
	return adjLabelPrefix(RoleOutAdj, src, edgeLabel)
}

// InAdjKey returns the incoming-adjacency key for (dst, edgeLabel, edgeID).
func InAdjKey(dst ids.ID, edgeLabel string, edgeID ids.ID) []byte {
	return adjKey(RoleInAdj, dst, edgeLabel, edgeID)
}

// InAdjPrefix returns the prefix enumerating every incoming edge of dst.
func InAdjPrefix(dst ids.ID) []byte {
	return adjNodePrefix(RoleInAdj, dst)
}

// InAdjLabelPrefix returns the prefix enumerating incoming edges of dst with
// a specific label.
func InAdjLabelPrefix(dst ids.ID, edgeLabel string) []byte {
	return adjLabelPrefix(RoleInAdj, dst, edgeLabel)
}

func adjNodePrefix(role Role, node ids.ID) []byte {
	k := make([]byte, 0, 1+16)
	k = append(k, byte(role))
	k = append(k, idBytes(node)...)
	return k
}

func adjLabelPrefix(role Role, node ids.ID, edgeLabel string) []byte {
	k := adjNodePrefix(role, node)
	k = append(k, []byte(edgeLabel)...)
	k = append(k, sep)
	return k
}

func adjKey(role Role, node ids.ID, edgeLabel string, edgeID ids.ID) []byte {
	k := adjLabelPrefix(role, node, edgeLabel)
	k = append(k, idBytes(edgeID)...)
	return k
}

// ExtractAdjEdgeID pulls the trailing edge id out of an adjacency key
// produced by OutAdjKey/InAdjKey. prefixLen is the length of the
// label-prefix the key was scanned under (len(OutAdjLabelPrefix(...))), so
// this works for both label-scoped and label-agnostic scans once the caller
// has located the separator.
func ExtractAdjEdgeID(key []byte, labelPrefixLen int) (ids.ID, bool) {
	tail := key[labelPrefixLen:]
	if len(tail) != 16 {
		return ids.Nil, false
	}
	var b [16]byte
	copy(b[:], tail)
	return ids.ID(b), true
}

// SplitAdjLabel finds the edge label embedded in an unfiltered adjacency
// key (scanned under OutAdjPrefix/InAdjPrefix, i.e. without a known label),
// returning the label and the offset of the separator immediately after it.
// Used when a post-decode filter (rather than a narrower prefix scan) is
// required because no edge_label was supplied.
func SplitAdjLabel(key []byte, nodePrefixLen int) (label string, edgeID ids.ID, ok bool) {
	rest := key[nodePrefixLen:]
	idx := bytes.IndexByte(rest, sep)
	if idx < 0 || len(rest)-idx-1 != 16 {
		return "", ids.Nil, false
	}
	label = string(rest[:idx])
	var b [16]byte
	copy(b[:], rest[idx+1:])
	return label, ids.ID(b), true
}

// SecondaryIndexKey returns the secondary-index key for (label, field,
// valueBytes, id).
func SecondaryIndexKey(label, field string, valueBytes []byte, id ids.ID) []byte {
	k := SecondaryIndexPrefix(label, field, valueBytes)
	return append(k, idBytes(id)...)
}

// SecondaryIndexPrefix returns the prefix enumerating every record of label
// whose field equals the value encoded as valueBytes.
func SecondaryIndexPrefix(label, field string, valueBytes []byte) []byte {
	k := make([]byte, 0, 1+len(label)+1+len(field)+1+len(valueBytes)+1)
	k = append(k, byte(RoleSecondary))
	k = append(k, []byte(label)...)
	k = append(k, sep)
	k = append(k, []byte(field)...)
	k = append(k, sep)
	k = append(k, valueBytes...)
	k = append(k, sep)
	return k
}

// SecondaryIndexFieldPrefix returns the prefix enumerating every indexed
// value for (label, field), used only for diagnostics/iteration tooling.
func SecondaryIndexFieldPrefix(label, field string) []byte {
	k := make([]byte, 0, 1+len(label)+1+len(field)+1)
	k = append(k, byte(RoleSecondary))
	k = append(k, []byte(label)...)
	k = append(k, sep)
	k = append(k, []byte(field)...)
	k = append(k, sep)
	return k
}

// ExtractIndexID pulls the trailing id out of a secondary-index key scanned
// under prefix (as returned by SecondaryIndexPrefix).
func ExtractIndexID(key []byte, prefixLen int) (ids.ID, bool) {
	tail := key[prefixLen:]
	if len(tail) != 16 {
		return ids.Nil, false
	}
	var b [16]byte
	copy(b[:], tail)
	return ids.ID(b), true
}
