package replica

import (
	"context"
	"sync"
	"time"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// submitter sends mutations to the server for the full and thin clients.
//
// With commit required, a call returns after the server acked the mutation,
// at which point the listeners of every other synced full client have seen it,
// unless that client failed to confirm within the server's delivery timeout.
// Without commit required, a call returns once the mutation is queued
// and an add with a generated id returns an empty id.
type submitter struct {
	ctx        context.Context
	clientId   protocol.Id
	session    *clientSession
	acks       *AckRegistry
	ackTimeout time.Duration

	modeMutex            sync.Mutex
	commitRequired       bool
	echo                 bool
	persistentVertexMode bool
}

func newSubmitter(ctx context.Context, clientId protocol.Id, acks *AckRegistry, settings *ClientSettings) *submitter {
	submitter := &submitter{
		ctx:                  ctx,
		clientId:             clientId,
		acks:                 acks,
		ackTimeout:           settings.AckTimeout,
		echo:                 settings.Echo,
		persistentVertexMode: settings.PersistentVertexMode,
	}
	if settings.CommitRequired {
		submitter.commitRequired = true
		submitter.echo = false
	}
	return submitter
}

// SetCommitRequired enables or disables blocking on the ack.
// Enabling it also disables echo. Echo can be enabled again afterwards.
func (self *submitter) SetCommitRequired(commitRequired bool) {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	self.commitRequired = commitRequired
	if commitRequired {
		self.echo = false
	}
}

func (self *submitter) CommitRequired() bool {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	return self.commitRequired
}

// SetEcho controls whether listeners of this client observe the mutations it submitted.
func (self *submitter) SetEcho(echo bool) {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	self.echo = echo
}

func (self *submitter) Echo() bool {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	return self.echo
}

// SetPersistentVertexMode controls whether added vertices outlive this client's connection.
func (self *submitter) SetPersistentVertexMode(persistentVertexMode bool) {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	self.persistentVertexMode = persistentVertexMode
}

func (self *submitter) PersistentVertexMode() bool {
	self.modeMutex.Lock()
	defer self.modeMutex.Unlock()
	return self.persistentVertexMode
}

func (self *submitter) ClientId() protocol.Id {
	return self.clientId
}

// Url is the server endpoint the client connects to.
func (self *submitter) Url() string {
	return self.session.url
}

// isEcho reports whether the mutation was submitted by this client with echo disabled
func (self *submitter) isEcho(mutation protocol.Mutation) bool {
	return mutation.Header().SenderId == self.clientId.String()
}

func (self *submitter) submit(mutation protocol.Mutation) (*protocol.Ack, error) {
	header := mutation.Header()
	header.MessageId = protocol.NewId()

	func() {
		self.modeMutex.Lock()
		defer self.modeMutex.Unlock()
		header.CommitRequired = self.commitRequired
		if !self.echo {
			header.SenderId = self.clientId.String()
		}
	}()

	if err := self.session.sendMessage(mutation); err != nil {
		return nil, err
	}
	if !header.CommitRequired {
		return nil, nil
	}

	start := time.Now()
	ack, err := self.acks.Await(self.ctx, header.MessageId, self.ackTimeout)
	clientAckWaitDuration.Observe(time.Since(start).Seconds())
	return ack, err
}

func addedId(ack *protocol.Ack, requestedId string) string {
	if ack != nil && ack.Payload != "" {
		return ack.Payload
	}
	return requestedId
}

func (self *submitter) AddVertex(vertexId string, attributes graph.Attributes) (string, error) {
	normalizedAttributes, err := graph.NormalizeAttributes(attributes)
	if err != nil {
		return "", err
	}
	ack, err := self.submit(&protocol.VertexAdd{
		VertexId:   vertexId,
		Attributes: normalizedAttributes,
		Persistent: self.PersistentVertexMode(),
	})
	if err != nil {
		return "", err
	}
	return addedId(ack, vertexId), nil
}

func (self *submitter) RemoveVertex(vertexId string) error {
	_, err := self.submit(&protocol.VertexRemove{
		VertexId: vertexId,
	})
	return err
}

func (self *submitter) SetVertexAttribute(vertexId string, key string, value any) error {
	normalizedValue, err := graph.NormalizeValue(value)
	if err != nil {
		return err
	}
	_, err = self.submit(&protocol.VertexAttrSet{
		VertexId: vertexId,
		Key:      key,
		Value:    normalizedValue,
	})
	return err
}

func (self *submitter) SetVertexAttributes(vertexId string, attributes graph.Attributes) error {
	normalizedAttributes, err := graph.NormalizeAttributes(attributes)
	if err != nil {
		return err
	}
	_, err = self.submit(&protocol.VertexAttrListSet{
		VertexId:   vertexId,
		Attributes: normalizedAttributes,
	})
	return err
}

func (self *submitter) RemoveVertexAttribute(vertexId string, key string) error {
	_, err := self.submit(&protocol.VertexAttrRemove{
		VertexId: vertexId,
		Key:      key,
	})
	return err
}

func (self *submitter) AddEdge(
	edgeId string,
	sourceId string,
	targetId string,
	undirected bool,
	attributes graph.Attributes,
) (string, error) {
	normalizedAttributes, err := graph.NormalizeAttributes(attributes)
	if err != nil {
		return "", err
	}
	ack, err := self.submit(&protocol.EdgeAdd{
		EdgeId:     edgeId,
		SourceId:   sourceId,
		TargetId:   targetId,
		Undirected: undirected,
		Attributes: normalizedAttributes,
	})
	if err != nil {
		return "", err
	}
	return addedId(ack, edgeId), nil
}

func (self *submitter) RemoveEdge(edgeId string) error {
	_, err := self.submit(&protocol.EdgeRemove{
		EdgeId: edgeId,
	})
	return err
}

func (self *submitter) SetEdgeAttribute(edgeId string, key string, value any) error {
	normalizedValue, err := graph.NormalizeValue(value)
	if err != nil {
		return err
	}
	_, err = self.submit(&protocol.EdgeAttrSet{
		EdgeId: edgeId,
		Key:    key,
		Value:  normalizedValue,
	})
	return err
}

func (self *submitter) SetEdgeAttributes(edgeId string, attributes graph.Attributes) error {
	normalizedAttributes, err := graph.NormalizeAttributes(attributes)
	if err != nil {
		return err
	}
	_, err = self.submit(&protocol.EdgeAttrListSet{
		EdgeId:     edgeId,
		Attributes: normalizedAttributes,
	})
	return err
}

func (self *submitter) RemoveEdgeAttribute(edgeId string, key string) error {
	_, err := self.submit(&protocol.EdgeAttrRemove{
		EdgeId: edgeId,
		Key:    key,
	})
	return err
}
