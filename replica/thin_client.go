package replica

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
)

// ThinClient submits mutations like `Client` but keeps no mirror.
// Every query returns `ErrUnsupportedOnThinClient`.
// The server does not broadcast to thin connections.
type ThinClient struct {
	storeQueries
	*submitter

	ctx    context.Context
	cancel context.CancelFunc

	session   *clientSession
	acks      *AckRegistry
	listeners *listenerList

	connected     chan struct{}
	connectedOnce sync.Once
}

func NewThinClientWithDefaults(ctx context.Context, url string) (*ThinClient, error) {
	return NewThinClient(ctx, url, DefaultThinClientSettings())
}

// NewThinClient blocks until the first connection is open.
func NewThinClient(ctx context.Context, url string, settings *ClientSettings) (*ThinClient, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	clientId := protocol.NewId()
	acks := NewAckRegistry(settings.AckRetention)

	client := &ThinClient{
		submitter: newSubmitter(cancelCtx, clientId, acks, settings),
		ctx:       cancelCtx,
		cancel:    cancel,
		acks:      acks,
		listeners: newListenerList("c"),
		connected: make(chan struct{}),
	}
	client.storeQueries.store = func() (*graph.Store, error) {
		return nil, ErrUnsupportedOnThinClient
	}
	client.session = newClientSession(cancelCtx, url, clientId, protocol.ClientModeThin, settings, acks, client)
	client.submitter.session = client.session
	go client.session.run()

	select {
	case <-client.connected:
		return client, nil
	case <-cancelCtx.Done():
		client.Close()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
}

func (self *ThinClient) AddListener(listener Listener) func() {
	return self.listeners.add(listener)
}

func (self *ThinClient) Close() {
	self.cancel()
	self.session.Close()
	self.acks.FailAll(ErrClosed)
}

func (self *ThinClient) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *ThinClient) sessionConnected(connectionId protocol.Id) {
	self.connectedOnce.Do(func() {
		close(self.connected)
	})
	self.listeners.notifyConnected(connectionId)
}

func (self *ThinClient) sessionReceived(connectionId protocol.Id, message protocol.Message) {
	glog.V(2).Infof("[c]thin ignore %T from %s\n", message, connectionId)
}

func (self *ThinClient) sessionLost(connectionId protocol.Id) {
	self.listeners.notifyConnectionLost(connectionId)
}
