package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
	"github.com/helixdb/helix/pkg/analyzer"
	"github.com/helixdb/helix/pkg/parser"
)

func mustAnalyze(t *testing.T, src string) *analyzer.Result {
	t.Helper()
	f, err := parser.Parse("test.hql", src)
	require.NoError(t, err)
	res := analyzer.Analyze(f)
	require.False(t, res.HasErrors(), "unexpected diagnostics: %+v", res.Diagnostics)
	return res
}

func newTestDB(t *testing.T) *Database {
	t.Helper()
	engine, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return &Database{Engine: engine, Vector: vector.New()}
}

func TestBuildCreateAndReadBack(t *testing.T) {
	res := mustAnalyze(t, `
		N::Person { INDEX name: String, age: I64 }
		QUERY create(name: String, age: I64) => p <- AddN<Person>{ name: name, age: age } RETURN p
		QUERY byName(name: String) => p <- N<Person>(name::name) RETURN p
	`)
	db := newTestDB(t)

	create := Build(res.Schema, res.Queries[0])
	resp, err := create(context.Background(), db, map[string]any{"name": "Alice", "age": int64(30)})
	require.NoError(t, err)

	created, ok := resp["p"].([]any)
	require.True(t, ok)
	require.Len(t, created, 1)

	byName := Build(res.Schema, res.Queries[1])
	resp, err = byName(context.Background(), db, map[string]any{"name": "Alice"})
	require.NoError(t, err)

	found, ok := resp["p"].([]any)
	require.True(t, ok)
	require.Len(t, found, 1)
	rec := found[0].(map[string]any)
	require.Equal(t, "Alice", rec["name"])
}

func TestBuildTraversalAndCount(t *testing.T) {
	res := mustAnalyze(t, `
		N::Person { name: String }
		E::Knows { From: Person, To: Person }
		QUERY seed(a: String, b: String) => x <- AddN<Person>{ name: a } y <- AddN<Person>{ name: b } e <- AddE<Knows>::From(x)::To(y) RETURN x, y
		QUERY countFriends(id: Uuid) => n <- N<Person>(id)::Out<Knows>::COUNT RETURN n
	`)
	db := newTestDB(t)

	seed := Build(res.Schema, res.Queries[0])
	resp, err := seed(context.Background(), db, map[string]any{"a": "Alice", "b": "Bob"})
	require.NoError(t, err)

	xs := resp["x"].([]any)
	aliceID := xs[0].(map[string]any)["id"].(string)

	count := Build(res.Schema, res.Queries[1])
	resp, err = count(context.Background(), db, map[string]any{"id": aliceID})
	require.NoError(t, err)
	ns := resp["n"].([]any)
	require.Len(t, ns, 1)
	require.EqualValues(t, 1, ns[0])
}

func TestBuildUpdateAndDrop(t *testing.T) {
	res := mustAnalyze(t, `
		N::Person { INDEX name: String }
		QUERY create(name: String) => p <- AddN<Person>{ name: name } RETURN p
		QUERY rename(id: Uuid, name: String) => p <- N<Person>(id)::UPDATE({ name: name }) RETURN p
		QUERY remove(id: Uuid) => p <- N<Person>(id) DROP p RETURN p
	`)
	db := newTestDB(t)

	create := Build(res.Schema, res.Queries[0])
	resp, err := create(context.Background(), db, map[string]any{"name": "Alice"})
	require.NoError(t, err)
	id := resp["p"].([]any)[0].(map[string]any)["id"].(string)

	rename := Build(res.Schema, res.Queries[1])
	resp, err = rename(context.Background(), db, map[string]any{"id": id, "name": "Alicia"})
	require.NoError(t, err)
	require.Equal(t, "Alicia", resp["p"].([]any)[0].(map[string]any)["name"])

	remove := Build(res.Schema, res.Queries[2])
	_, err = remove(context.Background(), db, map[string]any{"id": id})
	require.NoError(t, err)

	err = db.Engine.View(func(txn *storage.Txn) error {
		_, err := txn.GetNode(mustParseID(t, id))
		require.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func mustParseID(t *testing.T, s string) (id [16]byte) {
	t.Helper()
	parsed, err := parseParamID(s)
	require.NoError(t, err)
	return parsed
}
