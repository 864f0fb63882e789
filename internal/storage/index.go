package storage

import (
	"fmt"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/kv"
)

// writeSecondaryIndices adds one RoleSecondary entry per field named in
// indexedFields that is actually present on props: every indexed field
// gets a corresponding secondary-index entry.
func (t *Txn) writeSecondaryIndices(label string, id ids.ID, props map[string]codec.Value, indexedFields []string) error {
	for _, field := range indexedFields {
		v, ok := props[field]
		if !ok {
			continue
		}
		valBytes := codec.EncodeValue(nil, v)
		if err := t.bt.Set(kv.SecondaryIndexKey(label, field, valBytes, id), nil); err != nil {
			return fmt.Errorf("storage: write secondary index %s.%s: %w", label, field, err)
		}
	}
	return nil
}

// removeSecondaryIndices deletes every RoleSecondary entry derived from
// props. When indexedFields is nil, every property name in props is tried
// (used by drop, where the caller no longer has the schema's indexed-field
// list at hand) — bogus deletes against a key that was never written are a
// harmless no-op in badger.
func (t *Txn) removeSecondaryIndices(label string, id ids.ID, props map[string]codec.Value, indexedFields []string) error {
	fields := indexedFields
	if fields == nil {
		fields = make([]string, 0, len(props))
		for f := range props {
			fields = append(fields, f)
		}
	}
	for _, field := range fields {
		v, ok := props[field]
		if !ok {
			continue
		}
		valBytes := codec.EncodeValue(nil, v)
		if err := t.bt.Delete(kv.SecondaryIndexKey(label, field, valBytes, id)); err != nil {
			return fmt.Errorf("storage: remove secondary index %s.%s: %w", label, field, err)
		}
	}
	return nil
}

// diffSecondaryIndices reconciles the indexed-field entries between an
// existing property set and a patch about to replace it: fields whose
// value changes get their old index entry deleted and their new one
// written, fields untouched by the patch are left alone.
func (t *Txn) diffSecondaryIndices(label string, id ids.ID, existing, patch map[string]codec.Value, indexedFields []string) error {
	for _, field := range indexedFields {
		oldV, hadOld := existing[field]
		newV, hasNew := patch[field]
		if hadOld && hasNew && oldV.Equal(newV) {
			continue
		}
		if hadOld {
			valBytes := codec.EncodeValue(nil, oldV)
			if err := t.bt.Delete(kv.SecondaryIndexKey(label, field, valBytes, id)); err != nil {
				return fmt.Errorf("storage: diff secondary index %s.%s (old): %w", label, field, err)
			}
		}
		if hasNew {
			valBytes := codec.EncodeValue(nil, newV)
			if err := t.bt.Set(kv.SecondaryIndexKey(label, field, valBytes, id), nil); err != nil {
				return fmt.Errorf("storage: diff secondary index %s.%s (new): %w", label, field, err)
			}
		}
	}
	return nil
}
