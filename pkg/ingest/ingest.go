// Package ingest defines HelixDB's bulk-load payload shapes and a Loader
// that applies them directly against a storage.Engine, the same two calls
// (create nodes, then create edges) a real HTTP gateway's bulk-insert
// routes would make — without this package implementing the gateway
// itself.
//
// Grounded on straga-Mimir_lite's Neo4j JSON loader (storage/loader.go):
// read records off a reader one line at a time, batch them into a single
// transaction via internal/storage's BulkAddNodes/BulkAddEdges, and keep
// node loading strictly before edge loading so every edge's endpoints
// already exist by the time it is created.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/pkg/analyzer"
)

// NodePayload is the wire shape of one node in a bulk load request: the
// label to create it under, an optional caller-supplied id, and its
// properties.
type NodePayload struct {
	Label      string         `json:"label"`
	ID         string         `json:"id,omitempty"`
	Properties map[string]any `json:"properties"`
}

// EdgePayload is the wire shape of one edge, naming its endpoints by id —
// either an id LoadNodes returned earlier in the same load, or any id
// already present in storage.
type EdgePayload struct {
	Label      string         `json:"label"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Properties map[string]any `json:"properties"`
}

// Loader is the bulk-ingestion surface a gateway calls into: one method per
// record kind, each applied as a single transaction.
type Loader interface {
	LoadNodes(payloads []NodePayload) ([]ids.ID, error)
	LoadEdges(payloads []EdgePayload) error
}

// BulkLoader implements Loader directly against a storage.Engine, using
// schema to look up each label's indexed fields and each edge's declared
// endpoint kind — the same lookups pkg/codegen's evalAddN/evalAddE make
// for a live query, reused here so a bulk load honors the same schema.
type BulkLoader struct {
	Engine *storage.Engine
	Schema *analyzer.SchemaInfo
}

// NewBulkLoader returns a Loader backed by engine and validated against
// schema.
func NewBulkLoader(engine *storage.Engine, schema *analyzer.SchemaInfo) *BulkLoader {
	return &BulkLoader{Engine: engine, Schema: schema}
}

// LoadNodes creates every payload as a node in one write transaction via
// storage.Txn.BulkAddNodes, returning the assigned ids in payload order.
func (l *BulkLoader) LoadNodes(payloads []NodePayload) ([]ids.ID, error) {
	batch := make([]storage.BulkNodeInput, len(payloads))
	for i, p := range payloads {
		props := convertProps(p.Properties)
		in := storage.BulkNodeInput{
			Label:         p.Label,
			Properties:    props,
			IndexedFields: l.indexedFieldsFor(p.Label, props),
		}
		if p.ID != "" {
			id, err := ids.Parse(p.ID)
			if err != nil {
				return nil, fmt.Errorf("ingest: node %d: invalid id %q: %w", i, p.ID, err)
			}
			in.ID = &id
		}
		batch[i] = in
	}

	var created []*codec.Node
	err := l.Engine.Update(func(txn *storage.Txn) error {
		var err error
		created, err = txn.BulkAddNodes(batch)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]ids.ID, len(created))
	for i, n := range created {
		out[i] = n.ID
	}
	return out, nil
}

// LoadEdges creates every payload as an edge in one write transaction via
// storage.Txn.BulkAddEdges. Endpoints are not re-checked against storage:
// the caller is expected to have loaded every node first, matching
// BulkAddEdges's CheckEndpoints=false bulk-load contract.
func (l *BulkLoader) LoadEdges(payloads []EdgePayload) error {
	batch := make([]storage.BulkEdgeInput, len(payloads))
	for i, p := range payloads {
		from, err := ids.Parse(p.From)
		if err != nil {
			return fmt.Errorf("ingest: edge %d: invalid from id %q: %w", i, p.From, err)
		}
		to, err := ids.Parse(p.To)
		if err != nil {
			return fmt.Errorf("ingest: edge %d: invalid to id %q: %w", i, p.To, err)
		}
		props := convertProps(p.Properties)
		class := codec.ClassNode
		if ei := l.Schema.Edges[p.Label]; ei != nil && l.Schema.Kind(ei.To) == analyzer.LabelVector {
			class = codec.ClassVec
		}
		batch[i] = storage.BulkEdgeInput{
			Label:         p.Label,
			From:          from,
			To:            to,
			Class:         class,
			Properties:    props,
			IndexedFields: l.indexedFieldsFor(p.Label, props),
		}
	}

	return l.Engine.Update(func(txn *storage.Txn) error {
		_, err := txn.BulkAddEdges(batch)
		return err
	})
}

func (l *BulkLoader) indexedFieldsFor(label string, props map[string]codec.Value) []string {
	fields := l.Schema.FieldsOf(label)
	if fields == nil {
		return nil
	}
	var out []string
	for name := range props {
		if fi, ok := fields[name]; ok && fi.Indexed {
			out = append(out, name)
		}
	}
	return out
}

func convertProps(props map[string]any) map[string]codec.Value {
	out := make(map[string]codec.Value, len(props))
	for k, v := range props {
		out[k] = codec.FromAny(v)
	}
	return out
}

// LoadNodesFromReader reads newline-delimited JSON NodePayload records
// from r and loads them through l in one batch, mirroring
// straga-Mimir_lite's loadNodesFromReader (storage/loader.go).
func LoadNodesFromReader(l Loader, r io.Reader) ([]ids.ID, error) {
	var payloads []NodePayload
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p NodePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("ingest: parsing node line: %w", err)
		}
		payloads = append(payloads, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: scanning node file: %w", err)
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	return l.LoadNodes(payloads)
}

// LoadEdgesFromReader is LoadNodesFromReader's counterpart for edges.
func LoadEdgesFromReader(l Loader, r io.Reader) error {
	var payloads []EdgePayload
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p EdgePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("ingest: parsing edge line: %w", err)
		}
		payloads = append(payloads, p)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ingest: scanning edge file: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	return l.LoadEdges(payloads)
}
