package graph

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestAddVertexGeneratedIds(t *testing.T) {
	store := NewStoreWithDefaults()

	id, err := store.AddVertex("", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, id, "V0")

	// an id that the counter would produce next is skipped
	_, err = store.AddVertex("V2", nil)
	assert.Equal(t, err, nil)

	id, err = store.AddVertex("", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, id, "V3")

	assert.Equal(t, store.Vertices(nil), []string{"V0", "V2", "V3"})
}

func TestGeneratedIdsNotReused(t *testing.T) {
	store := NewStoreWithDefaults()

	a, _ := store.AddVertex("", nil)
	b, _ := store.AddVertex("", nil)
	e, err := store.AddEdge("", a, b, false, nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, e, "E0")

	_, err = store.RemoveVertex(a)
	assert.Equal(t, err, nil)
	assert.Equal(t, store.HasEdge(e), false)

	c, _ := store.AddVertex("", nil)
	assert.NotEqual(t, c, a)
	f, _ := store.AddEdge("", b, c, false, nil)
	assert.NotEqual(t, f, e)
}

func TestDuplicateRejected(t *testing.T) {
	store := NewStoreWithDefaults()

	_, err := store.AddVertex("A", nil)
	assert.Equal(t, err, nil)
	_, err = store.AddVertex("A", nil)
	assert.Equal(t, errors.Is(err, ErrDuplicateId), true)

	_, err = store.AddVertex("B", nil)
	assert.Equal(t, err, nil)
	_, err = store.AddEdge("AB", "A", "B", false, nil)
	assert.Equal(t, err, nil)
	_, err = store.AddEdge("AB", "B", "A", false, nil)
	assert.Equal(t, errors.Is(err, ErrDuplicateId), true)

	assert.Equal(t, store.VertexCount(), 2)
	assert.Equal(t, store.EdgeCount(), 1)
}

func TestDuplicateAllowedLastWins(t *testing.T) {
	store := NewStore(&StoreSettings{AllowDuplicates: true})

	_, err := store.AddVertex("A", Attributes{"n": 1})
	assert.Equal(t, err, nil)
	_, err = store.AddVertex("A", Attributes{"n": 2})
	assert.Equal(t, err, nil)

	assert.Equal(t, store.VertexCount(), 2)
	assert.Equal(t, store.Vertices(nil), []string{"A", "A"})

	// lookups resolve to the most recently added vertex
	n, err := store.VertexAttribute("A", "n")
	assert.Equal(t, err, nil)
	assert.Equal(t, n, float64(2))

	// removal exposes the previous vertex
	removed, err := store.RemoveVertex("A")
	assert.Equal(t, err, nil)
	assert.Equal(t, removed.Attributes, Attributes{"n": float64(2)})
	n, _ = store.VertexAttribute("A", "n")
	assert.Equal(t, n, float64(1))
	assert.Equal(t, store.HasVertex("A"), true)

	_, err = store.RemoveVertex("A")
	assert.Equal(t, err, nil)
	assert.Equal(t, store.HasVertex("A"), false)
}

func TestEdgeUnknownVertex(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("A", nil)

	_, err := store.AddEdge("", "A", "missing", false, nil)
	assert.Equal(t, errors.Is(err, ErrUnknownVertex), true)
	_, err = store.AddEdge("", "missing", "A", true, nil)
	assert.Equal(t, errors.Is(err, ErrUnknownVertex), true)
	assert.Equal(t, store.EdgeCount(), 0)

	_, err = store.RemoveEdge("missing")
	assert.Equal(t, errors.Is(err, ErrUnknownEdge), true)
	err = store.SetVertexAttribute("missing", "k", "v")
	assert.Equal(t, errors.Is(err, ErrUnknownVertex), true)
}

func TestUndirectedSymmetry(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("A", nil)
	store.AddVertex("B", nil)
	_, err := store.AddEdge("U", "A", "B", true, nil)
	assert.Equal(t, err, nil)
	_, err = store.AddEdge("D", "A", "B", false, nil)
	assert.Equal(t, err, nil)

	for _, vertexId := range []string{"A", "B"} {
		incoming, _ := store.IncomingEdges(vertexId, nil)
		outgoing, _ := store.OutgoingEdges(vertexId, nil)
		assert.Equal(t, contains(incoming, "U"), true)
		assert.Equal(t, contains(outgoing, "U"), true)
	}

	outgoingA, _ := store.OutgoingEdges("A", nil)
	assert.Equal(t, outgoingA, []string{"D", "U"})
	incomingA, _ := store.IncomingEdges("A", nil)
	assert.Equal(t, incomingA, []string{"U"})
	incomingB, _ := store.IncomingEdges("B", nil)
	assert.Equal(t, incomingB, []string{"D", "U"})

	ab, _ := store.EdgesBetween("A", "B", nil)
	assert.Equal(t, ab, []string{"D", "U"})
	ba, _ := store.EdgesBetween("B", "A", nil)
	assert.Equal(t, ba, []string{"U"})
	count, _ := store.EdgeCountBetween("B", "A")
	assert.Equal(t, count, 1)

	undirected, _ := store.IsEdgeUndirected("U")
	assert.Equal(t, undirected, true)
	other, _ := store.EdgeOtherEndpoint("U", "B")
	assert.Equal(t, other, "A")
	_, err = store.EdgeOtherEndpoint("U", "C")
	assert.Equal(t, errors.Is(err, ErrNotEndpoint), true)
}

func TestCascadeDelete(t *testing.T) {
	store := NewStoreWithDefaults()
	for _, id := range []string{"A", "B", "C", "D"} {
		store.AddVertex(id, nil)
	}
	store.AddEdge("AB", "A", "B", false, Attributes{"w": 1})
	store.AddEdge("CA", "C", "A", false, nil)
	store.AddEdge("AD", "A", "D", true, nil)
	store.AddEdge("AA", "A", "A", false, nil)
	store.AddEdge("BC", "B", "C", false, nil)
	store.AddEdge("CD", "C", "D", true, nil)

	before := store.EdgeCount()
	removed, err := store.RemoveVertex("A")
	assert.Equal(t, err, nil)
	assert.Equal(t, removed.Id, "A")

	// outgoing edges first, then the remaining incoming edges
	removedIds := []string{}
	for _, removedEdge := range removed.Edges {
		removedIds = append(removedIds, removedEdge.Id)
	}
	assert.Equal(t, removedIds, []string{"AA", "AB", "AD", "CA"})
	assert.Equal(t, store.EdgeCount(), before-4)
	assert.Equal(t, store.Edges(nil), []string{"BC", "CD"})

	assert.Equal(t, removed.Edges[1].SourceId, "A")
	assert.Equal(t, removed.Edges[1].TargetId, "B")
	assert.Equal(t, removed.Edges[1].Attributes, Attributes{"w": float64(1)})

	inC, _ := store.InDegree("C")
	assert.Equal(t, inC, 2)
	outC, _ := store.OutDegree("C")
	assert.Equal(t, outC, 1)
	inD, _ := store.InDegree("D")
	assert.Equal(t, inD, 1)
}

func TestAttributes(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("A", Attributes{"color": "red"})

	err := store.SetVertexAttributes("A", Attributes{"size": 3, "tags": []any{"x", "y"}})
	assert.Equal(t, err, nil)
	attributes, _ := store.VertexAttributes("A")
	assert.Equal(t, attributes, Attributes{
		"color": "red",
		"size":  float64(3),
		"tags":  []any{"x", "y"},
	})

	// returned attributes are copies
	attributes["color"] = "blue"
	attributes["tags"].([]any)[0] = "z"
	color, _ := store.VertexAttribute("A", "color")
	assert.Equal(t, color, "red")
	tags, _ := store.VertexAttribute("A", "tags")
	assert.Equal(t, tags, []any{"x", "y"})

	keys, _ := store.VertexAttributeKeys("A")
	assert.Equal(t, keys, []string{"color", "size", "tags"})

	value, err := store.RemoveVertexAttribute("A", "size")
	assert.Equal(t, err, nil)
	assert.Equal(t, value, float64(3))
	value, err = store.RemoveVertexAttribute("A", "size")
	assert.Equal(t, err, nil)
	assert.Equal(t, value, nil)

	missing, err := store.VertexAttribute("A", "missing")
	assert.Equal(t, err, nil)
	assert.Equal(t, missing, nil)

	err = store.SetVertexAttribute("A", "bad", make(chan int))
	assert.Equal(t, errors.Is(err, ErrInvalidValue), true)
}

func TestEdgeAttributes(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("A", nil)
	store.AddVertex("B", nil)
	store.AddEdge("E", "A", "B", false, Attributes{"w": 1.5})

	err := store.SetEdgeAttribute("E", "label", "x")
	assert.Equal(t, err, nil)
	err = store.SetEdgeAttributes("E", Attributes{"w": 2})
	assert.Equal(t, err, nil)
	attributes, _ := store.EdgeAttributes("E")
	assert.Equal(t, attributes, Attributes{"w": float64(2), "label": "x"})

	value, _ := store.RemoveEdgeAttribute("E", "label")
	assert.Equal(t, value, "x")
	keys, _ := store.EdgeAttributeKeys("E")
	assert.Equal(t, keys, []string{"w"})

	source, _ := store.EdgeSource("E")
	target, _ := store.EdgeTarget("E")
	assert.Equal(t, source, "A")
	assert.Equal(t, target, "B")

	removed, err := store.RemoveEdge("E")
	assert.Equal(t, err, nil)
	assert.Equal(t, removed.Attributes, Attributes{"w": float64(2)})
	outA, _ := store.OutDegree("A")
	assert.Equal(t, outA, 0)
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
