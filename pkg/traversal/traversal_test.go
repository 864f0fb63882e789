package traversal

import (
	"context"
	"testing"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
)

func seedSocialGraph(t *testing.T, e *storage.Engine) (alice, bob, carol ids.ID) {
	t.Helper()
	err := e.Update(func(txn *storage.Txn) error {
		a, err := txn.CreateNode("person", map[string]codec.Value{"name": codec.String("Alice")}, []string{"name"}, storage.CreateNodeOptions{})
		if err != nil {
			return err
		}
		b, err := txn.CreateNode("person", map[string]codec.Value{"name": codec.String("Bob")}, []string{"name"}, storage.CreateNodeOptions{})
		if err != nil {
			return err
		}
		c, err := txn.CreateNode("person", map[string]codec.Value{"name": codec.String("Carol")}, []string{"name"}, storage.CreateNodeOptions{})
		if err != nil {
			return err
		}
		if _, err := txn.CreateEdge("knows", a.ID, b.ID, nil, codec.ClassNode, nil, storage.CreateEdgeOptions{CheckEndpoints: true}); err != nil {
			return err
		}
		if _, err := txn.CreateEdge("knows", a.ID, c.ID, nil, codec.ClassNode, nil, storage.CreateEdgeOptions{CheckEndpoints: true}); err != nil {
			return err
		}
		alice, bob, carol = a.ID, b.ID, c.ID
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return
}

func TestNFromTypeOutCollect(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	alice, _, _ := seedSocialGraph(t, e)

	err := e.View(func(txn *storage.Txn) error {
		p := NFromID(txn, alice).Out("knows")
		values, err := p.Collect()
		if err != nil {
			return err
		}
		if len(values) != 2 {
			t.Fatalf("len(values) = %d, want 2", len(values))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestDedupAndRange(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	seedSocialGraph(t, e)

	err := e.View(func(txn *storage.Txn) error {
		values, err := NFromType(txn, "person").Dedup().Collect()
		if err != nil {
			return err
		}
		if len(values) != 3 {
			t.Fatalf("len(values) = %d, want 3", len(values))
		}

		ranged, err := NFromType(txn, "person").Range(0, 2).Collect()
		if err != nil {
			return err
		}
		if len(ranged) != 2 {
			t.Fatalf("len(ranged) = %d, want 2", len(ranged))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestCountStep(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	seedSocialGraph(t, e)

	err := e.View(func(txn *storage.Txn) error {
		values, err := NFromType(txn, "person").Count().Collect()
		if err != nil {
			return err
		}
		if len(values) != 1 || values[0].Kind != KindScalar {
			t.Fatalf("expected one scalar value, got %+v", values)
		}
		if values[0].Scalar.Int != 3 {
			t.Fatalf("count = %d, want 3", values[0].Scalar.Int)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestFilterRef(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	seedSocialGraph(t, e)

	err := e.View(func(txn *storage.Txn) error {
		values, err := NFromType(txn, "person").FilterRef(func(v Value) (bool, error) {
			name, ok := v.Properties()["name"]
			return ok && name.Str == "Alice", nil
		}).Collect()
		if err != nil {
			return err
		}
		if len(values) != 1 {
			t.Fatalf("len(values) = %d, want 1", len(values))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestUpdateAndDrop(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	alice, _, _ := seedSocialGraph(t, e)

	err := e.Update(func(txn *storage.Txn) error {
		updated, err := NFromID(txn, alice).Update(map[string]codec.Value{"name": codec.String("Alicia")}, []string{"name"}).Collect()
		if err != nil {
			return err
		}
		if len(updated) != 1 || updated[0].Properties()["name"].Str != "Alicia" {
			t.Fatalf("update did not apply: %+v", updated)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = e.Update(func(txn *storage.Txn) error {
		return NFromID(txn, alice).Drop(nil)
	})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}

	err = e.View(func(txn *storage.Txn) error {
		_, err := txn.GetNode(alice)
		if err != storage.ErrNotFound {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestShortestPathStep(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()
	alice, _, carol := seedSocialGraph(t, e)

	err := e.View(func(txn *storage.Txn) error {
		steps, err := NFromID(txn, alice).ShortestPath(carol, "")
		if err != nil {
			return err
		}
		if len(steps) != 1 {
			t.Fatalf("len(steps) = %d, want 1", len(steps))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestSearchVSource(t *testing.T) {
	e, _ := storage.OpenInMemory()
	defer e.Close()

	idx := vector.New()
	err := e.Update(func(txn *storage.Txn) error {
		p := AddV(txn, idx, "doc", []float64{1, 0, 0}, nil, storage.CreateVectorRecordOptions{})
		_, err := p.Collect()
		return err
	})
	if err != nil {
		t.Fatalf("AddV: %v", err)
	}

	err = e.View(func(txn *storage.Txn) error {
		values, err := SearchV(context.Background(), txn, idx, "doc", []float64{1, 0, 0}, 5, 0, nil).Collect()
		if err != nil {
			return err
		}
		if len(values) != 1 || values[0].Kind != KindVector {
			t.Fatalf("expected one vector result, got %+v", values)
		}
		if values[0].Score < 0.99 {
			t.Fatalf("score = %v, want ~1.0", values[0].Score)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}
