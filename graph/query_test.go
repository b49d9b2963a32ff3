package graph

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestFilterVertices(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("v1", Attributes{"color": "red"})
	store.AddVertex("v2", Attributes{"color": "blue"})
	store.AddVertex("v3", nil)

	assert.Equal(t, store.Vertices(Filter{"color": "red"}), []string{"v1"})
	assert.Equal(t, store.Vertices(Filter{"color": "green"}), []string{})
	assert.Equal(t, store.Vertices(nil), []string{"v1", "v2", "v3"})
	assert.Equal(t, store.Vertices(Filter{}), []string{"v1", "v2", "v3"})
}

func TestFilterRequiresEveryKey(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("a", Attributes{"color": "red", "size": 1})
	store.AddVertex("b", Attributes{"color": "red"})
	store.AddVertex("c", Attributes{"color": "red", "size": 2})

	// integer filter values match the stored float values
	assert.Equal(t, store.Vertices(Filter{"color": "red", "size": 1}), []string{"a"})
	assert.Equal(t, store.Vertices(Filter{"size": nil}), []string{})
}

func TestFilterEdges(t *testing.T) {
	store := NewStoreWithDefaults()
	store.AddVertex("A", nil)
	store.AddVertex("B", nil)
	store.AddEdge("e1", "A", "B", false, Attributes{"kind": "road"})
	store.AddEdge("e2", "A", "B", false, Attributes{"kind": "rail"})
	store.AddEdge("e3", "B", "A", true, Attributes{"kind": "road"})

	assert.Equal(t, store.Edges(Filter{"kind": "road"}), []string{"e1", "e3"})

	outgoing, err := store.OutgoingEdges("A", Filter{"kind": "road"})
	assert.Equal(t, err, nil)
	assert.Equal(t, outgoing, []string{"e1", "e3"})
	incoming, _ := store.IncomingEdges("A", Filter{"kind": "rail"})
	assert.Equal(t, incoming, []string{})

	between, _ := store.EdgesBetween("A", "B", Filter{"kind": "road"})
	assert.Equal(t, between, []string{"e1", "e3"})
	count, _ := store.EdgeCountBetween("A", "B")
	assert.Equal(t, count, 3)

	_, err = store.OutgoingEdges("missing", nil)
	assert.NotEqual(t, err, nil)
}
