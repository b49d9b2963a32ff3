package replica

import (
	"fmt"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// appliedChange is a mutation after it was applied to a store,
// with the resolved id and normalized values needed to notify listeners.
type appliedChange struct {
	mutation      protocol.Mutation
	id            string
	attributes    graph.Attributes
	value         any
	removedVertex *graph.RemovedVertex
	removedEdge   *graph.RemovedEdge
}

// applyMutation applies `mutation` to `store`.
// Generated ids and normalized values are written back into the mutation,
// so that the mutation can be forwarded as applied.
func applyMutation(store *graph.Store, mutation protocol.Mutation) (*appliedChange, error) {
	switch v := mutation.(type) {
	case *protocol.VertexAdd:
		attributes, err := graph.NormalizeAttributes(v.Attributes)
		if err != nil {
			return nil, err
		}
		vertexId, err := store.AddVertex(v.VertexId, attributes)
		if err != nil {
			return nil, err
		}
		v.VertexId = vertexId
		v.Attributes = attributes
		return &appliedChange{
			mutation:   v,
			id:         vertexId,
			attributes: attributes.Clone(),
		}, nil
	case *protocol.VertexRemove:
		var removedVertex *graph.RemovedVertex
		var err error
		if 0 < v.Depth {
			removedVertex, err = store.RemoveVertexAt(v.VertexId, v.Depth)
		} else {
			removedVertex, err = store.RemoveVertex(v.VertexId)
		}
		if err != nil {
			return nil, err
		}
		return &appliedChange{
			mutation:      v,
			id:            v.VertexId,
			removedVertex: removedVertex,
		}, nil
	case *protocol.VertexAttrSet:
		value, err := graph.NormalizeValue(v.Value)
		if err != nil {
			return nil, err
		}
		if err := store.SetVertexAttribute(v.VertexId, v.Key, value); err != nil {
			return nil, err
		}
		v.Value = value
		return &appliedChange{
			mutation: v,
			id:       v.VertexId,
			value:    value,
		}, nil
	case *protocol.VertexAttrListSet:
		attributes, err := graph.NormalizeAttributes(v.Attributes)
		if err != nil {
			return nil, err
		}
		if err := store.SetVertexAttributes(v.VertexId, attributes); err != nil {
			return nil, err
		}
		v.Attributes = attributes
		return &appliedChange{
			mutation:   v,
			id:         v.VertexId,
			attributes: attributes.Clone(),
		}, nil
	case *protocol.VertexAttrRemove:
		if _, err := store.RemoveVertexAttribute(v.VertexId, v.Key); err != nil {
			return nil, err
		}
		return &appliedChange{
			mutation: v,
			id:       v.VertexId,
		}, nil
	case *protocol.EdgeAdd:
		attributes, err := graph.NormalizeAttributes(v.Attributes)
		if err != nil {
			return nil, err
		}
		edgeId, err := store.AddEdge(v.EdgeId, v.SourceId, v.TargetId, v.Undirected, attributes)
		if err != nil {
			return nil, err
		}
		v.EdgeId = edgeId
		v.Attributes = attributes
		return &appliedChange{
			mutation:   v,
			id:         edgeId,
			attributes: attributes.Clone(),
		}, nil
	case *protocol.EdgeRemove:
		removedEdge, err := store.RemoveEdge(v.EdgeId)
		if err != nil {
			return nil, err
		}
		return &appliedChange{
			mutation:    v,
			id:          v.EdgeId,
			removedEdge: removedEdge,
		}, nil
	case *protocol.EdgeAttrSet:
		value, err := graph.NormalizeValue(v.Value)
		if err != nil {
			return nil, err
		}
		if err := store.SetEdgeAttribute(v.EdgeId, v.Key, value); err != nil {
			return nil, err
		}
		v.Value = value
		return &appliedChange{
			mutation: v,
			id:       v.EdgeId,
			value:    value,
		}, nil
	case *protocol.EdgeAttrListSet:
		attributes, err := graph.NormalizeAttributes(v.Attributes)
		if err != nil {
			return nil, err
		}
		if err := store.SetEdgeAttributes(v.EdgeId, attributes); err != nil {
			return nil, err
		}
		v.Attributes = attributes
		return &appliedChange{
			mutation:   v,
			id:         v.EdgeId,
			attributes: attributes.Clone(),
		}, nil
	case *protocol.EdgeAttrRemove:
		if _, err := store.RemoveEdgeAttribute(v.EdgeId, v.Key); err != nil {
			return nil, err
		}
		return &appliedChange{
			mutation: v,
			id:       v.EdgeId,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mutation %T", protocol.ErrInvalidMessage, v)
	}
}

// removedVertexChange describes a vertex removed outside of a submitted mutation, e.g. a released lease.
// The depth names the removed entry when the id is duplicated.
func removedVertexChange(removedVertex *graph.RemovedVertex) *appliedChange {
	return &appliedChange{
		mutation: &protocol.VertexRemove{
			MessageHeader: protocol.NewHeader(),
			VertexId:      removedVertex.Id,
			Depth:         removedVertex.Depth,
		},
		id:            removedVertex.Id,
		removedVertex: removedVertex,
	}
}

func (self *appliedChange) notify(listener Listener) {
	switch v := self.mutation.(type) {
	case *protocol.VertexAdd:
		listener.VertexAdded(self.id, self.attributes.Clone())
	case *protocol.VertexRemove:
		listener.VertexRemoved(self.id, self.removedVertex.Attributes.Clone(), self.removedVertex.Edges)
	case *protocol.VertexAttrSet:
		listener.VertexAttributeSet(self.id, v.Key, self.value)
	case *protocol.VertexAttrListSet:
		listener.VertexAttributesSet(self.id, self.attributes.Clone())
	case *protocol.VertexAttrRemove:
		listener.VertexAttributeRemoved(self.id, v.Key)
	case *protocol.EdgeAdd:
		listener.EdgeAdded(self.id, v.SourceId, v.TargetId, v.Undirected, self.attributes.Clone())
	case *protocol.EdgeRemove:
		listener.EdgeRemoved(
			self.id,
			self.removedEdge.SourceId,
			self.removedEdge.TargetId,
			self.removedEdge.Attributes.Clone(),
		)
	case *protocol.EdgeAttrSet:
		listener.EdgeAttributeSet(self.id, v.Key, self.value)
	case *protocol.EdgeAttrListSet:
		listener.EdgeAttributesSet(self.id, self.attributes.Clone())
	case *protocol.EdgeAttrRemove:
		listener.EdgeAttributeRemoved(self.id, v.Key)
	}
}
