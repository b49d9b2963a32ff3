package graph

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func testStore() *Store {
	store := NewStoreWithDefaults()
	store.AddVertex("A", Attributes{"name": "a", "nested": map[string]any{"x": 1}})
	store.AddVertex("B", nil)
	store.AddVertex("", Attributes{"n": 3})
	store.AddEdge("AB", "A", "B", false, Attributes{"w": 1})
	store.AddEdge("", "B", "V2", true, nil)
	return store
}

func TestCloneEqual(t *testing.T) {
	store := testStore()
	store.MarkLeased("A", "c1")

	clone := store.Clone()
	assert.Equal(t, clone.String(), store.String())
	assert.Equal(t, clone.Vertices(nil), store.Vertices(nil))
	assert.Equal(t, clone.Edges(nil), store.Edges(nil))

	incoming, _ := clone.IncomingEdges("V2", nil)
	assert.Equal(t, incoming, []string{"E1"})

	// lease markers are not cloned
	_, leased := clone.LeasedOwner("A")
	assert.Equal(t, leased, false)
	owner, leased := store.LeasedOwner("A")
	assert.Equal(t, leased, true)
	assert.Equal(t, owner, "c1")

	// the clone is detached
	clone.SetVertexAttribute("A", "name", "changed")
	name, _ := store.VertexAttribute("A", "name")
	assert.Equal(t, name, "a")
	nested, _ := clone.VertexAttribute("A", "nested")
	nested.(map[string]any)["x"] = 2
	nested, _ = store.VertexAttribute("A", "nested")
	assert.Equal(t, nested, map[string]any{"x": float64(1)})

	// the counters carry over
	id, _ := clone.AddVertex("", nil)
	assert.Equal(t, id, "V3")
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := testStore()

	restored, err := NewStoreFromSnapshot(store.Snapshot())
	assert.Equal(t, err, nil)
	assert.Equal(t, restored.String(), store.String())

	undirected, _ := restored.IsEdgeUndirected("E1")
	assert.Equal(t, undirected, true)
	inB, _ := restored.InDegree("B")
	assert.Equal(t, inB, 2)
}

func TestSnapshotDuplicates(t *testing.T) {
	store := NewStore(&StoreSettings{AllowDuplicates: true})
	store.AddVertex("A", Attributes{"n": 1})
	store.AddVertex("B", nil)
	// attaches to the first A
	store.AddEdge("E", "A", "B", false, nil)
	store.AddVertex("A", Attributes{"n": 2})

	restored, err := NewStoreFromSnapshot(store.Snapshot())
	assert.Equal(t, err, nil)
	assert.Equal(t, restored.VertexCount(), 3)

	// the visible A is the second one, which has no edges
	outA, _ := restored.OutDegree("A")
	assert.Equal(t, outA, 0)
	restored.RemoveVertex("A")
	outA, _ = restored.OutDegree("A")
	assert.Equal(t, outA, 1)
}

func TestSnapshotBadIndex(t *testing.T) {
	_, err := NewStoreFromSnapshot(&Snapshot{
		Vertices: []*VertexRecord{{Id: "A"}},
		Edges:    []*EdgeRecord{{Id: "E", SourceIndex: 0, TargetIndex: 4}},
	})
	assert.NotEqual(t, err, nil)
}
