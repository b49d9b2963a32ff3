package replica

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/bringyour/syncgraph/protocol"
)

type sessionHandler interface {
	// called after the hello is queued on a new connection
	sessionConnected(connectionId protocol.Id)
	// acks are deposited in the registry and not passed to the handler
	sessionReceived(connectionId protocol.Id, message protocol.Message)
	sessionLost(connectionId protocol.Id)
}

// clientSession keeps a websocket connection to the server, reconnecting until closed.
// Every new connection starts with a hello.
type clientSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	url      string
	clientId protocol.Id
	mode     protocol.ClientMode
	settings *ClientSettings
	acks     *AckRegistry
	handler  sessionHandler

	mutex sync.Mutex
	// the send queue of the current connection, nil while disconnected
	send    chan []byte
	sendCtx context.Context
}

func newClientSession(
	ctx context.Context,
	url string,
	clientId protocol.Id,
	mode protocol.ClientMode,
	settings *ClientSettings,
	acks *AckRegistry,
	handler sessionHandler,
) *clientSession {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &clientSession{
		ctx:      cancelCtx,
		cancel:   cancel,
		url:      url,
		clientId: clientId,
		mode:     mode,
		settings: settings,
		acks:     acks,
		handler:  handler,
	}
}

func (self *clientSession) run() {
	defer self.cancel()

	for {
		reconnect := NewReconnect(self.settings.ReconnectTimeout)

		ws, err := self.connect()
		if err != nil {
			clientConnectsTotal.WithLabelValues(string(self.mode), "error").Inc()
			glog.Infof("[c]connect %s error = %s\n", self.url, err)
			select {
			case <-self.ctx.Done():
				return
			case <-reconnect.After():
				continue
			}
		}
		clientConnectsTotal.WithLabelValues(string(self.mode), "success").Inc()

		connectedTime := time.Now()
		self.handle(ws)
		glog.V(1).Infof("[c]connection %s ended after %s\n", self.clientId, time.Since(connectedTime))

		select {
		case <-self.ctx.Done():
			return
		case <-reconnect.After():
		}
	}
}

func (self *clientSession) connect() (*websocket.Conn, error) {
	dialer := &websocket.Dialer{
		NetDialContext: (&net.Dialer{
			Timeout: self.settings.HttpConnectTimeout,
		}).DialContext,
		HandshakeTimeout: self.settings.WsHandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(self.ctx, self.url, nil)
	return ws, err
}

func (self *clientSession) handle(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	connectionId := protocol.NewId()

	helloBytes, err := protocol.EncodeFrame(&protocol.Hello{
		MessageHeader: protocol.NewHeader(),
		ClientId:      self.clientId,
		Mode:          self.mode,
	})
	if err != nil {
		glog.Infof("[c]hello error = %s\n", err)
		return
	}

	send := make(chan []byte, max(1, self.settings.SendBufferSize))
	send <- helloBytes

	func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		self.send = send
		self.sendCtx = handleCtx
	}()
	defer func() {
		func() {
			self.mutex.Lock()
			defer self.mutex.Unlock()
			self.send = nil
			self.sendCtx = nil
		}()
		self.acks.FailAll(ErrConnectionLost)
		self.handler.sessionLost(connectionId)
	}()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case message := <-send:
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
					// note that for websocket a deadline timeout cannot be recovered
					glog.Infof("[cs]%s-> error = %s\n", self.clientId, err)
					return
				}
				glog.V(2).Infof("[cs]%s->\n", self.clientId)
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.BinaryMessage, make([]byte, 0)); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			default:
			}

			ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
			messageType, b, err := ws.ReadMessage()
			if err != nil {
				glog.V(1).Infof("[cr]%s<- error = %s\n", self.clientId, err)
				return
			}

			switch messageType {
			case websocket.BinaryMessage:
				if 0 == len(b) {
					// ping
					continue
				}
				message, err := protocol.DecodeFrame(b)
				if err != nil {
					glog.Infof("[cr]drop %s<- error = %s\n", self.clientId, err)
					continue
				}
				glog.V(2).Infof("[cr]%s<-\n", self.clientId)
				self.receive(connectionId, message)
			default:
				glog.V(2).Infof("[cr]other=%d %s<-\n", messageType, self.clientId)
			}
		}
	}()

	self.handler.sessionConnected(connectionId)

	select {
	case <-handleCtx.Done():
	}
}

func (self *clientSession) receive(connectionId protocol.Id, message protocol.Message) {
	switch v := message.(type) {
	case *protocol.Ack:
		if !v.Success {
			glog.V(1).Infof("[c]error ack %s = %s %s\n", v.ReferenceMessageId, v.ErrorCode, v.Cause)
		}
		self.acks.Deposit(v)
	default:
		self.handler.sessionReceived(connectionId, message)
	}
}

// sendMessage queues the message on the current connection.
func (self *clientSession) sendMessage(message protocol.Message) error {
	if self.ctx.Err() != nil {
		return ErrClosed
	}

	b, err := protocol.EncodeFrame(message)
	if err != nil {
		return err
	}

	self.mutex.Lock()
	send := self.send
	sendCtx := self.sendCtx
	self.mutex.Unlock()

	if send == nil {
		return ErrConnectionLost
	}

	select {
	case <-sendCtx.Done():
		return ErrConnectionLost
	case send <- b:
		return nil
	case <-time.After(self.settings.WriteTimeout):
		return fmt.Errorf("%w: send timeout", ErrConnectionLost)
	}
}

func (self *clientSession) Close() {
	self.cancel()
}
