package graph

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestReleaseAllLeasedBy(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("X", Attributes{"owner": "c1"})
	store.AddVertex("Y", nil)
	store.AddVertex("Z", nil)
	store.AddEdge("XY", "X", "Y", false, nil)
	store.AddEdge("ZX", "Z", "X", true, nil)
	store.AddEdge("YZ", "Y", "Z", false, nil)

	store.MarkLeased("X", "c1")
	store.MarkLeased("Z", "c2")

	assert.Equal(t, store.LeasedBy("c1"), []string{"X"})

	removedVertices := store.ReleaseAllLeasedBy("c1")
	assert.Equal(t, len(removedVertices), 1)
	assert.Equal(t, removedVertices[0].Id, "X")
	assert.Equal(t, removedVertices[0].Attributes, Attributes{"owner": "c1"})
	assert.Equal(t, len(removedVertices[0].Edges), 2)

	assert.Equal(t, store.HasVertex("X"), false)
	assert.Equal(t, store.Edges(nil), []string{"YZ"})

	// nothing else is leased by c1
	assert.Equal(t, len(store.ReleaseAllLeasedBy("c1")), 0)
	assert.Equal(t, store.HasVertex("Z"), true)
}

func TestReleaseLeasedBelowVisible(t *testing.T) {
	store := NewStore(&StoreSettings{
		AllowDuplicates: true,
	})
	store.AddVertex("A", Attributes{"owner": "c1"})
	store.MarkLeased("A", "c1")
	store.AddVertex("A", Attributes{"owner": "c2"})
	store.AddVertex("B", nil)
	store.AddEdge("AB", "A", "B", false, nil)

	removedVertices := store.ReleaseAllLeasedBy("c1")
	assert.Equal(t, len(removedVertices), 1)
	assert.Equal(t, removedVertices[0].Depth, 1)
	assert.Equal(t, removedVertices[0].Attributes, Attributes{"owner": "c1"})
	// the edge belongs to the visible entry
	assert.Equal(t, len(removedVertices[0].Edges), 0)

	owner, _ := store.VertexAttribute("A", "owner")
	assert.Equal(t, owner, "c2")
	assert.Equal(t, store.HasEdge("AB"), true)
}

func TestRemoveVertexAt(t *testing.T) {
	store := NewStore(&StoreSettings{
		AllowDuplicates: true,
	})
	store.AddVertex("A", Attributes{"n": 0})
	store.AddVertex("A", Attributes{"n": 1})
	store.AddVertex("A", Attributes{"n": 2})

	removedVertex, err := store.RemoveVertexAt("A", 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, removedVertex.Attributes, Attributes{"n": float64(1)})
	assert.Equal(t, removedVertex.Depth, 1)

	n, _ := store.VertexAttribute("A", "n")
	assert.Equal(t, n, float64(2))
	assert.Equal(t, store.VertexCount(), 2)

	_, err = store.RemoveVertexAt("A", 2)
	assert.Equal(t, errors.Is(err, ErrUnknownVertex), true)

	removedVertex, err = store.RemoveVertexAt("A", 0)
	assert.Equal(t, err, nil)
	assert.Equal(t, removedVertex.Attributes, Attributes{"n": float64(2)})
	n, _ = store.VertexAttribute("A", "n")
	assert.Equal(t, n, float64(0))
}
