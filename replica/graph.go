package replica

import (
	"github.com/bringyour/syncgraph/graph"
)

// Graph is the graph api shared by the server, the full client and the thin client.
// An empty id on add generates an id.
type Graph interface {
	AddVertex(vertexId string, attributes graph.Attributes) (string, error)
	RemoveVertex(vertexId string) error
	SetVertexAttribute(vertexId string, key string, value any) error
	SetVertexAttributes(vertexId string, attributes graph.Attributes) error
	RemoveVertexAttribute(vertexId string, key string) error

	AddEdge(edgeId string, sourceId string, targetId string, undirected bool, attributes graph.Attributes) (string, error)
	RemoveEdge(edgeId string) error
	SetEdgeAttribute(edgeId string, key string, value any) error
	SetEdgeAttributes(edgeId string, attributes graph.Attributes) error
	RemoveEdgeAttribute(edgeId string, key string) error

	HasVertex(vertexId string) (bool, error)
	HasEdge(edgeId string) (bool, error)
	VertexAttribute(vertexId string, key string) (any, error)
	VertexAttributes(vertexId string) (graph.Attributes, error)
	VertexAttributeKeys(vertexId string) ([]string, error)
	EdgeAttribute(edgeId string, key string) (any, error)
	EdgeAttributes(edgeId string) (graph.Attributes, error)
	EdgeAttributeKeys(edgeId string) ([]string, error)
	EdgeSource(edgeId string) (string, error)
	EdgeTarget(edgeId string) (string, error)
	EdgeOtherEndpoint(edgeId string, vertexId string) (string, error)
	IsEdgeUndirected(edgeId string) (bool, error)
	Vertices(filter graph.Filter) ([]string, error)
	Edges(filter graph.Filter) ([]string, error)
	InDegree(vertexId string) (int, error)
	OutDegree(vertexId string) (int, error)
	IncomingEdges(vertexId string, filter graph.Filter) ([]string, error)
	OutgoingEdges(vertexId string, filter graph.Filter) ([]string, error)
	EdgesBetween(sourceId string, targetId string, filter graph.Filter) ([]string, error)
	EdgeCountBetween(sourceId string, targetId string) (int, error)
	Clone() (*graph.Store, error)

	AddListener(listener Listener) func()
	Close()
}

var (
	_ Graph = (*Server)(nil)
	_ Graph = (*Client)(nil)
	_ Graph = (*ThinClient)(nil)
)

// storeQueries implements the read side of `Graph` over a store accessor.
type storeQueries struct {
	store func() (*graph.Store, error)
}

func (self *storeQueries) HasVertex(vertexId string) (bool, error) {
	store, err := self.store()
	if err != nil {
		return false, err
	}
	return store.HasVertex(vertexId), nil
}

func (self *storeQueries) HasEdge(edgeId string) (bool, error) {
	store, err := self.store()
	if err != nil {
		return false, err
	}
	return store.HasEdge(edgeId), nil
}

func (self *storeQueries) VertexAttribute(vertexId string, key string) (any, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.VertexAttribute(vertexId, key)
}

func (self *storeQueries) VertexAttributes(vertexId string) (graph.Attributes, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.VertexAttributes(vertexId)
}

func (self *storeQueries) VertexAttributeKeys(vertexId string) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.VertexAttributeKeys(vertexId)
}

func (self *storeQueries) EdgeAttribute(edgeId string, key string) (any, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.EdgeAttribute(edgeId, key)
}

func (self *storeQueries) EdgeAttributes(edgeId string) (graph.Attributes, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.EdgeAttributes(edgeId)
}

func (self *storeQueries) EdgeAttributeKeys(edgeId string) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.EdgeAttributeKeys(edgeId)
}

func (self *storeQueries) EdgeSource(edgeId string) (string, error) {
	store, err := self.store()
	if err != nil {
		return "", err
	}
	return store.EdgeSource(edgeId)
}

func (self *storeQueries) EdgeTarget(edgeId string) (string, error) {
	store, err := self.store()
	if err != nil {
		return "", err
	}
	return store.EdgeTarget(edgeId)
}

func (self *storeQueries) EdgeOtherEndpoint(edgeId string, vertexId string) (string, error) {
	store, err := self.store()
	if err != nil {
		return "", err
	}
	return store.EdgeOtherEndpoint(edgeId, vertexId)
}

func (self *storeQueries) IsEdgeUndirected(edgeId string) (bool, error) {
	store, err := self.store()
	if err != nil {
		return false, err
	}
	return store.IsEdgeUndirected(edgeId)
}

func (self *storeQueries) Vertices(filter graph.Filter) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.Vertices(filter), nil
}

func (self *storeQueries) Edges(filter graph.Filter) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.Edges(filter), nil
}

func (self *storeQueries) InDegree(vertexId string) (int, error) {
	store, err := self.store()
	if err != nil {
		return 0, err
	}
	return store.InDegree(vertexId)
}

func (self *storeQueries) OutDegree(vertexId string) (int, error) {
	store, err := self.store()
	if err != nil {
		return 0, err
	}
	return store.OutDegree(vertexId)
}

func (self *storeQueries) IncomingEdges(vertexId string, filter graph.Filter) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.IncomingEdges(vertexId, filter)
}

func (self *storeQueries) OutgoingEdges(vertexId string, filter graph.Filter) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.OutgoingEdges(vertexId, filter)
}

func (self *storeQueries) EdgesBetween(sourceId string, targetId string, filter graph.Filter) ([]string, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.EdgesBetween(sourceId, targetId, filter)
}

func (self *storeQueries) EdgeCountBetween(sourceId string, targetId string) (int, error) {
	store, err := self.store()
	if err != nil {
		return 0, err
	}
	return store.EdgeCountBetween(sourceId, targetId)
}

func (self *storeQueries) Clone() (*graph.Store, error) {
	store, err := self.store()
	if err != nil {
		return nil, err
	}
	return store.Clone(), nil
}
