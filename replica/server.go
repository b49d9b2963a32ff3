package replica

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// ServerTransport delivers messages to connections in the order they are sent.
type ServerTransport interface {
	Send(connectionId protocol.Id, message protocol.Message) error
	Broadcast(message protocol.Message, excludeConnectionIds ...protocol.Id) error
}

type serverConnection struct {
	connectionId protocol.Id
	clientId     protocol.Id
	mode         protocol.ClientMode
	// a snapshot was sent to the connection
	synced bool
}

// pendingCommit holds the ack of a commit required mutation
// until every synced full peer confirmed delivery of the broadcast.
type pendingCommit struct {
	messageId    protocol.Id
	connectionId protocol.Id
	ack          *protocol.Ack
	waiting      map[protocol.Id]bool
	timer        *time.Timer
}

// Server owns the authoritative graph.
// Each accepted mutation is applied and broadcast as one serialized step,
// so every connection observes mutations in the order they were applied.
//
// A commit required mutation is acked after every other synced full connection
// confirmed that its listeners saw the broadcast, or after `DeliveryTimeout`.
// The wait never holds the step.
//
// Listeners are called while the step is held and must not call mutations on the server.
type Server struct {
	storeQueries

	ctx    context.Context
	cancel context.CancelFunc

	settings  *ServerSettings
	store     *graph.Store
	listeners *listenerList

	dispatchMutex  sync.Mutex
	transport      ServerTransport
	connections    map[protocol.Id]*serverConnection
	pendingCommits map[protocol.Id]*pendingCommit
}

func NewServerWithDefaults(ctx context.Context) *Server {
	return NewServer(ctx, DefaultServerSettings())
}

func NewServer(ctx context.Context, settings *ServerSettings) *Server {
	cancelCtx, cancel := context.WithCancel(ctx)
	store := graph.NewStore(&graph.StoreSettings{
		AllowDuplicates: settings.AllowDuplicates,
	})
	server := &Server{
		ctx:            cancelCtx,
		cancel:         cancel,
		settings:       settings,
		store:          store,
		listeners:      newListenerList("s"),
		connections:    map[protocol.Id]*serverConnection{},
		pendingCommits: map[protocol.Id]*pendingCommit{},
	}
	server.storeQueries.store = func() (*graph.Store, error) {
		return store, nil
	}
	return server
}

func (self *Server) SetTransport(transport ServerTransport) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()
	self.transport = transport
}

func (self *Server) SetAllowDuplicates(allowDuplicates bool) {
	self.store.SetAllowDuplicates(allowDuplicates)
}

func (self *Server) AddListener(listener Listener) func() {
	return self.listeners.add(listener)
}

func (self *Server) Close() {
	self.cancel()

	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()
	for messageId, commit := range self.pendingCommits {
		commit.timer.Stop()
		delete(self.pendingCommits, messageId)
	}
}

func (self *Server) Done() <-chan struct{} {
	return self.ctx.Done()
}

// ConnectionCount counts open connections. Synced counts the connections that received a snapshot.
func (self *Server) ConnectionCount() (count int, syncedCount int) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	for _, connection := range self.connections {
		count += 1
		if connection.synced {
			syncedCount += 1
		}
	}
	return
}

func (self *Server) HandleConnected(connectionId protocol.Id) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	if _, ok := self.connections[connectionId]; ok {
		return
	}
	self.connections[connectionId] = &serverConnection{
		connectionId: connectionId,
		mode:         protocol.ClientModeFull,
	}
	serverConnections.Inc()
	glog.V(1).Infof("[s]connected %s\n", connectionId)

	self.listeners.notifyConnected(connectionId)
}

// HandleConnectionLost removes every vertex leased by the connection.
// Each removal is broadcast to the remaining connections and reported to listeners,
// then listeners are told about the lost connection.
func (self *Server) HandleConnectionLost(connectionId protocol.Id) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	if _, ok := self.connections[connectionId]; !ok {
		return
	}
	delete(self.connections, connectionId)
	serverConnections.Dec()

	for messageId, commit := range self.pendingCommits {
		if commit.connectionId == connectionId {
			commit.timer.Stop()
			delete(self.pendingCommits, messageId)
		} else if commit.waiting[connectionId] {
			delete(commit.waiting, connectionId)
			self.completeCommit(commit)
		}
	}

	removedVertices := self.store.ReleaseAllLeasedBy(connectionId.String())
	for _, removedVertex := range removedVertices {
		change := removedVertexChange(removedVertex)
		glog.V(1).Infof("[s]release %s leased by %s\n", removedVertex.Id, connectionId)
		self.broadcast(change.mutation, connectionId)
		self.listeners.notifyApplied(change)
		serverLeaseReleasesTotal.Inc()
	}
	glog.V(1).Infof("[s]connection lost %s (%d released)\n", connectionId, len(removedVertices))

	self.listeners.notifyConnectionLost(connectionId)
}

func (self *Server) HandleMessage(connectionId protocol.Id, message protocol.Message) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	if self.ctx.Err() != nil {
		return
	}

	connection, ok := self.connections[connectionId]
	if !ok {
		glog.Infof("[s]drop message from unknown connection %s\n", connectionId)
		return
	}

	switch v := message.(type) {
	case *protocol.Hello:
		connection.clientId = v.ClientId
		if v.Mode == protocol.ClientModeThin {
			connection.mode = protocol.ClientModeThin
		} else {
			connection.mode = protocol.ClientModeFull
		}
		glog.V(1).Infof("[s]hello %s client %s mode %s\n", connectionId, v.ClientId, connection.mode)
	case *protocol.SyncRequest:
		reply := &protocol.SyncReply{
			MessageHeader:      protocol.NewHeader(),
			ReferenceMessageId: v.MessageId,
			Snapshot:           self.store.Snapshot(),
		}
		if err := self.send(connectionId, reply); err == nil {
			connection.synced = true
		}
	case protocol.Mutation:
		self.handleMutation(connectionId, v)
	case *protocol.Delivered:
		if commit, ok := self.pendingCommits[v.ReferenceMessageId]; ok && commit.waiting[connectionId] {
			delete(commit.waiting, connectionId)
			self.completeCommit(commit)
		}
	default:
		err := fmt.Errorf("%w: unexpected %T", protocol.ErrInvalidMessage, v)
		self.send(connectionId, protocol.NewErrorAck(message.Header().MessageId, err))
	}
}

// must be called with `dispatchMutex`
func (self *Server) handleMutation(connectionId protocol.Id, mutation protocol.Mutation) {
	header := mutation.Header()

	change, err := applyMutation(self.store, mutation)
	serverMutationsTotal.WithLabelValues(string(mutation.Kind()), mutationResult(err)).Inc()
	if err != nil {
		glog.V(1).Infof("[s]reject %s %s from %s = %s\n", mutation.Kind(), header.MessageId, connectionId, err)
		self.send(connectionId, protocol.NewErrorAck(header.MessageId, err))
		return
	}

	var payload string
	switch v := mutation.(type) {
	case *protocol.VertexAdd:
		payload = v.VertexId
		if !v.Persistent {
			self.store.MarkLeased(v.VertexId, connectionId.String())
		}
	case *protocol.EdgeAdd:
		payload = v.EdgeId
	}
	ack := protocol.NewSuccessAck(header.MessageId, payload)

	glog.V(2).Infof("[s]apply %s %s from %s\n", mutation.Kind(), header.MessageId, connectionId)
	if header.CommitRequired {
		self.broadcast(mutation)
		self.listeners.notifyApplied(change)
		self.awaitDelivery(connectionId, ack)
	} else {
		self.send(connectionId, ack)
		self.broadcast(mutation)
		self.listeners.notifyApplied(change)
	}
}

// awaitDelivery sends the ack once the synced full peers of the submitter confirmed delivery.
// must be called with `dispatchMutex`
func (self *Server) awaitDelivery(connectionId protocol.Id, ack *protocol.Ack) {
	waiting := map[protocol.Id]bool{}
	for peerId, connection := range self.connections {
		if peerId != connectionId && connection.synced && connection.mode == protocol.ClientModeFull {
			waiting[peerId] = true
		}
	}
	if len(waiting) == 0 || self.transport == nil {
		self.send(connectionId, ack)
		return
	}

	commit := &pendingCommit{
		messageId:    ack.ReferenceMessageId,
		connectionId: connectionId,
		ack:          ack,
		waiting:      waiting,
	}
	self.pendingCommits[commit.messageId] = commit
	commit.timer = time.AfterFunc(self.settings.DeliveryTimeout, func() {
		self.dispatchMutex.Lock()
		defer self.dispatchMutex.Unlock()

		if self.pendingCommits[commit.messageId] != commit {
			return
		}
		for peerId := range commit.waiting {
			glog.Infof("[s]delivery of %s to %s timed out\n", commit.messageId, peerId)
			serverDeliveryTimeoutsTotal.Inc()
		}
		clear(commit.waiting)
		self.completeCommit(commit)
	})
}

// must be called with `dispatchMutex`
func (self *Server) completeCommit(commit *pendingCommit) {
	if 0 < len(commit.waiting) {
		return
	}
	if self.pendingCommits[commit.messageId] != commit {
		return
	}
	delete(self.pendingCommits, commit.messageId)
	commit.timer.Stop()
	if self.ctx.Err() != nil {
		return
	}
	self.send(commit.connectionId, commit.ack)
}

// local mutations are persistent and are not acked
func (self *Server) submitLocal(mutation protocol.Mutation) (*appliedChange, error) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	change, err := applyMutation(self.store, mutation)
	serverMutationsTotal.WithLabelValues(string(mutation.Kind()), mutationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	glog.V(2).Infof("[s]apply local %s %s\n", mutation.Kind(), mutation.Header().MessageId)
	self.broadcast(mutation)
	self.listeners.notifyApplied(change)
	return change, nil
}

// thin connections only receive acks
// must be called with `dispatchMutex`
func (self *Server) broadcast(message protocol.Message, excludeConnectionIds ...protocol.Id) {
	if self.transport == nil {
		return
	}
	for connectionId, connection := range self.connections {
		if connection.mode == protocol.ClientModeThin {
			excludeConnectionIds = append(excludeConnectionIds, connectionId)
		}
	}
	if err := self.transport.Broadcast(message, excludeConnectionIds...); err != nil {
		glog.Infof("[s]broadcast %s error = %s\n", message.Header().MessageId, err)
	}
}

// must be called with `dispatchMutex`
func (self *Server) send(connectionId protocol.Id, message protocol.Message) error {
	if self.transport == nil {
		return fmt.Errorf("%w: no transport", ErrConnectionLost)
	}
	err := self.transport.Send(connectionId, message)
	if err != nil {
		glog.Infof("[s]send %s->%s error = %s\n", message.Header().MessageId, connectionId, err)
	}
	return err
}
