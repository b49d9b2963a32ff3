package replica

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// Client keeps a mirror of the server graph.
// On every connection the client requests a snapshot and ignores broadcasts until the snapshot arrives.
// After that, every broadcast is applied to the mirror and reported to listeners,
// except the client's own mutations when echo is disabled.
//
// Listeners run in order on a dispatch goroutine, so a listener may submit mutations
// and wait for their commit. After the listeners saw a commit required broadcast,
// the client confirms delivery to the server, which holds the submitter's ack until then.
//
// Listener registrations survive reconnects. Listeners are told `ConnectionLost` on each loss
// and `Connected` after each snapshot.
type Client struct {
	storeQueries
	*submitter

	ctx    context.Context
	cancel context.CancelFunc

	settings  *ClientSettings
	acks      *AckRegistry
	session   *clientSession
	listeners *listenerList
	dispatch  *dispatchQueue

	stateMutex sync.Mutex
	mirror     *graph.Store
	// the mirror is in sync with the current connection
	synced        bool
	connectionId  protocol.Id
	syncRequestId protocol.Id

	initialized     chan struct{}
	initializedOnce sync.Once
}

func NewClientWithDefaults(ctx context.Context, url string) (*Client, error) {
	return NewClient(ctx, url, DefaultClientSettings())
}

// NewClient connects to the server and blocks until the first snapshot is installed.
// Connection attempts repeat every `ReconnectTimeout` until ctx is done.
func NewClient(ctx context.Context, url string, settings *ClientSettings) (*Client, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	clientId := protocol.NewId()
	acks := NewAckRegistry(settings.AckRetention)

	client := &Client{
		submitter:   newSubmitter(cancelCtx, clientId, acks, settings),
		ctx:         cancelCtx,
		cancel:      cancel,
		settings:    settings,
		acks:        acks,
		listeners:   newListenerList("c"),
		dispatch:    newDispatchQueue(cancelCtx),
		initialized: make(chan struct{}),
	}
	client.storeQueries.store = client.currentMirror
	client.session = newClientSession(cancelCtx, url, clientId, protocol.ClientModeFull, settings, acks, client)
	client.submitter.session = client.session
	go client.dispatch.Run()
	go client.session.run()

	select {
	case <-client.initialized:
		return client, nil
	case <-cancelCtx.Done():
		client.Close()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
}

func (self *Client) currentMirror() (*graph.Store, error) {
	self.stateMutex.Lock()
	defer self.stateMutex.Unlock()
	if self.mirror == nil {
		return nil, ErrConnectionLost
	}
	return self.mirror, nil
}

// Synced reports whether the mirror follows the current connection.
func (self *Client) Synced() bool {
	self.stateMutex.Lock()
	defer self.stateMutex.Unlock()
	return self.synced
}

func (self *Client) AddListener(listener Listener) func() {
	return self.listeners.add(listener)
}

func (self *Client) Close() {
	self.cancel()
	self.session.Close()
	self.acks.FailAll(ErrClosed)
}

func (self *Client) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *Client) sessionConnected(connectionId protocol.Id) {
	syncRequest := &protocol.SyncRequest{
		MessageHeader: protocol.NewHeader(),
	}
	func() {
		self.stateMutex.Lock()
		defer self.stateMutex.Unlock()
		self.synced = false
		self.connectionId = connectionId
		self.syncRequestId = syncRequest.MessageId
	}()
	if err := self.session.sendMessage(syncRequest); err != nil {
		glog.Infof("[c]sync request %s error = %s\n", connectionId, err)
	}
}

func (self *Client) sessionReceived(connectionId protocol.Id, message protocol.Message) {
	switch v := message.(type) {
	case *protocol.SyncReply:
		self.installSnapshot(connectionId, v)
	case protocol.Mutation:
		self.applyBroadcast(connectionId, v)
	default:
		glog.V(2).Infof("[c]ignore %T\n", v)
	}
}

func (self *Client) installSnapshot(connectionId protocol.Id, reply *protocol.SyncReply) {
	mirror, err := graph.NewStoreFromSnapshot(reply.Snapshot)
	if err != nil {
		glog.Infof("[c]snapshot error = %s\n", err)
		return
	}
	// the mirror replays accepted mutations, it never rejects a duplicate
	mirror.SetAllowDuplicates(true)

	installed := func() bool {
		self.stateMutex.Lock()
		defer self.stateMutex.Unlock()
		if self.connectionId != connectionId || self.syncRequestId != reply.ReferenceMessageId {
			return false
		}
		self.mirror = mirror
		self.synced = true
		return true
	}()
	if !installed {
		glog.V(1).Infof("[c]drop stale snapshot %s\n", reply.ReferenceMessageId)
		return
	}
	glog.V(1).Infof("[c]synced %s (%d vertices, %d edges)\n", connectionId, mirror.VertexCount(), mirror.EdgeCount())

	self.initializedOnce.Do(func() {
		close(self.initialized)
	})
	self.dispatch.Add(func() {
		self.listeners.notifyConnected(connectionId)
	})
}

func (self *Client) applyBroadcast(connectionId protocol.Id, mutation protocol.Mutation) {
	var mirror *graph.Store
	func() {
		self.stateMutex.Lock()
		defer self.stateMutex.Unlock()
		if self.synced && self.connectionId == connectionId {
			mirror = self.mirror
		}
	}()
	if mirror == nil {
		glog.V(2).Infof("[c]drop unsynced %s %s\n", mutation.Kind(), mutation.Header().MessageId)
		return
	}

	change, err := applyMutation(mirror, mutation)
	if err != nil {
		glog.Infof("[c]mirror apply %s %s error = %s\n", mutation.Kind(), mutation.Header().MessageId, err)
		return
	}
	header := mutation.Header()
	echo := self.isEcho(mutation)
	self.dispatch.Add(func() {
		if !echo {
			self.listeners.notifyApplied(change)
		}
		if header.CommitRequired && !echo {
			self.confirmDelivery(connectionId, header.MessageId)
		}
	})
}

// confirmDelivery tells the server the listeners saw the broadcast.
// A confirmation for an older connection is dropped.
func (self *Client) confirmDelivery(connectionId protocol.Id, messageId protocol.Id) {
	current := func() bool {
		self.stateMutex.Lock()
		defer self.stateMutex.Unlock()
		return self.synced && self.connectionId == connectionId
	}()
	if !current {
		return
	}
	err := self.session.sendMessage(&protocol.Delivered{
		MessageHeader:      protocol.NewHeader(),
		ReferenceMessageId: messageId,
	})
	if err != nil {
		glog.V(1).Infof("[c]delivered %s error = %s\n", messageId, err)
	}
}

func (self *Client) sessionLost(connectionId protocol.Id) {
	func() {
		self.stateMutex.Lock()
		defer self.stateMutex.Unlock()
		self.synced = false
	}()
	glog.V(1).Infof("[c]connection lost %s\n", connectionId)
	self.dispatch.Add(func() {
		self.listeners.notifyConnectionLost(connectionId)
	})
}
