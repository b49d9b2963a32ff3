package replica

import (
	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// Listener observes applied graph changes and connection changes.
// A vertex removal is reported once, with every cascaded edge, on both clients and servers.
// Callbacks run synchronously on the replication loop. A panicking listener is logged and skipped.
type Listener interface {
	VertexAdded(vertexId string, attributes graph.Attributes)
	VertexRemoved(vertexId string, attributes graph.Attributes, removedEdges []*graph.RemovedEdge)
	VertexAttributeSet(vertexId string, key string, value any)
	VertexAttributesSet(vertexId string, attributes graph.Attributes)
	VertexAttributeRemoved(vertexId string, key string)
	EdgeAdded(edgeId string, sourceId string, targetId string, undirected bool, attributes graph.Attributes)
	EdgeRemoved(edgeId string, sourceId string, targetId string, attributes graph.Attributes)
	EdgeAttributeSet(edgeId string, key string, value any)
	EdgeAttributesSet(edgeId string, attributes graph.Attributes)
	EdgeAttributeRemoved(edgeId string, key string)
	Connected(connectionId protocol.Id)
	ConnectionLost(connectionId protocol.Id)
}

// BaseListener ignores every event. Embed it to implement a subset of `Listener`.
type BaseListener struct{}

func (BaseListener) VertexAdded(string, graph.Attributes) {}
func (BaseListener) VertexRemoved(string, graph.Attributes, []*graph.RemovedEdge) {}
func (BaseListener) VertexAttributeSet(string, string, any) {}
func (BaseListener) VertexAttributesSet(string, graph.Attributes) {}
func (BaseListener) VertexAttributeRemoved(string, string) {}
func (BaseListener) EdgeAdded(string, string, string, bool, graph.Attributes) {}
func (BaseListener) EdgeRemoved(string, string, string, graph.Attributes) {}
func (BaseListener) EdgeAttributeSet(string, string, any) {}
func (BaseListener) EdgeAttributesSet(string, graph.Attributes) {}
func (BaseListener) EdgeAttributeRemoved(string, string) {}
func (BaseListener) Connected(protocol.Id) {}
func (BaseListener) ConnectionLost(protocol.Id) {}

type listenerList struct {
	tag       string
	listeners *CallbackList[Listener]
}

func newListenerList(tag string) *listenerList {
	return &listenerList{
		tag:       tag,
		listeners: NewCallbackList[Listener](),
	}
}

func (self *listenerList) add(listener Listener) func() {
	callbackId := self.listeners.Add(listener)
	return func() {
		self.listeners.Remove(callbackId)
	}
}

func (self *listenerList) each(notify func(Listener)) {
	for _, listener := range self.listeners.Get() {
		if err := recoverListener(self.tag, func() { notify(listener) }); err != nil {
			listenerPanicsTotal.WithLabelValues(self.tag).Inc()
		}
	}
}

// notifyApplied reports a mutation that was applied to a store
func (self *listenerList) notifyApplied(change *appliedChange) {
	self.each(change.notify)
}

func (self *listenerList) notifyConnected(connectionId protocol.Id) {
	self.each(func(listener Listener) {
		listener.Connected(connectionId)
	})
}

func (self *listenerList) notifyConnectionLost(connectionId protocol.Id) {
	self.each(func(listener Listener) {
		listener.ConnectionLost(connectionId)
	})
}
