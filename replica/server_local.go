package replica

import (
	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// mutations made directly on the server are broadcast like client mutations

func (self *Server) AddVertex(vertexId string, attributes graph.Attributes) (string, error) {
	change, err := self.submitLocal(&protocol.VertexAdd{
		MessageHeader: protocol.NewHeader(),
		VertexId:      vertexId,
		Attributes:    attributes,
		Persistent:    true,
	})
	if err != nil {
		return "", err
	}
	return change.id, nil
}

func (self *Server) RemoveVertex(vertexId string) error {
	_, err := self.submitLocal(&protocol.VertexRemove{
		MessageHeader: protocol.NewHeader(),
		VertexId:      vertexId,
	})
	return err
}

func (self *Server) SetVertexAttribute(vertexId string, key string, value any) error {
	_, err := self.submitLocal(&protocol.VertexAttrSet{
		MessageHeader: protocol.NewHeader(),
		VertexId:      vertexId,
		Key:           key,
		Value:         value,
	})
	return err
}

func (self *Server) SetVertexAttributes(vertexId string, attributes graph.Attributes) error {
	_, err := self.submitLocal(&protocol.VertexAttrListSet{
		MessageHeader: protocol.NewHeader(),
		VertexId:      vertexId,
		Attributes:    attributes,
	})
	return err
}

func (self *Server) RemoveVertexAttribute(vertexId string, key string) error {
	_, err := self.submitLocal(&protocol.VertexAttrRemove{
		MessageHeader: protocol.NewHeader(),
		VertexId:      vertexId,
		Key:           key,
	})
	return err
}

func (self *Server) AddEdge(
	edgeId string,
	sourceId string,
	targetId string,
	undirected bool,
	attributes graph.Attributes,
) (string, error) {
	change, err := self.submitLocal(&protocol.EdgeAdd{
		MessageHeader: protocol.NewHeader(),
		EdgeId:        edgeId,
		SourceId:      sourceId,
		TargetId:      targetId,
		Undirected:    undirected,
		Attributes:    attributes,
	})
	if err != nil {
		return "", err
	}
	return change.id, nil
}

func (self *Server) RemoveEdge(edgeId string) error {
	_, err := self.submitLocal(&protocol.EdgeRemove{
		MessageHeader: protocol.NewHeader(),
		EdgeId:        edgeId,
	})
	return err
}

func (self *Server) SetEdgeAttribute(edgeId string, key string, value any) error {
	_, err := self.submitLocal(&protocol.EdgeAttrSet{
		MessageHeader: protocol.NewHeader(),
		EdgeId:        edgeId,
		Key:           key,
		Value:         value,
	})
	return err
}

func (self *Server) SetEdgeAttributes(edgeId string, attributes graph.Attributes) error {
	_, err := self.submitLocal(&protocol.EdgeAttrListSet{
		MessageHeader: protocol.NewHeader(),
		EdgeId:        edgeId,
		Attributes:    attributes,
	})
	return err
}

func (self *Server) RemoveEdgeAttribute(edgeId string, key string) error {
	_, err := self.submitLocal(&protocol.EdgeAttrRemove{
		MessageHeader: protocol.NewHeader(),
		EdgeId:        edgeId,
		Key:           key,
	})
	return err
}

// LeasedOwner returns the connection that leases the vertex.
func (self *Server) LeasedOwner(vertexId string) (protocol.Id, bool) {
	owner, ok := self.store.LeasedOwner(vertexId)
	if !ok {
		return protocol.Id{}, false
	}
	connectionId, err := protocol.ParseId(owner)
	if err != nil {
		return protocol.Id{}, false
	}
	return connectionId, true
}
