package replica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/maps"

	"github.com/bringyour/syncgraph/protocol"
)

// WsServer serves the replication protocol over websockets.
// Each connection has an ordered send queue drained by one writer.
// An empty binary message is a ping.
type WsServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	server   *Server
	settings *WsServerSettings
	upgrader websocket.Upgrader

	mutex       sync.Mutex
	connections map[protocol.Id]*wsConnection
}

type wsConnection struct {
	connectionId protocol.Id
	ctx          context.Context
	cancel       context.CancelFunc
	send         chan []byte
}

func NewWsServerWithDefaults(ctx context.Context, server *Server) *WsServer {
	return NewWsServer(ctx, server, DefaultWsServerSettings())
}

// NewWsServer attaches the websocket transport to `server`.
func NewWsServer(ctx context.Context, server *Server, settings *WsServerSettings) *WsServer {
	cancelCtx, cancel := context.WithCancel(ctx)
	wsServer := &WsServer{
		ctx:      cancelCtx,
		cancel:   cancel,
		server:   server,
		settings: settings,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: settings.WsHandshakeTimeout,
			ReadBufferSize:   settings.ReadBufferByteSize,
			WriteBufferSize:  settings.WriteBufferByteSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		connections: map[protocol.Id]*wsConnection{},
	}
	server.SetTransport(wsServer)
	return wsServer
}

func (self *WsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader wrote the error response
		glog.Infof("[ws]upgrade error = %s\n", err)
		return
	}
	self.handle(ws)
}

func (self *WsServer) handle(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	connection := &wsConnection{
		connectionId: protocol.NewId(),
		ctx:          handleCtx,
		cancel:       handleCancel,
		send:         make(chan []byte, self.settings.SendBufferSize),
	}
	connectionId := connection.connectionId

	func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		self.connections[connectionId] = connection
	}()
	self.server.HandleConnected(connectionId)
	defer func() {
		func() {
			self.mutex.Lock()
			defer self.mutex.Unlock()
			delete(self.connections, connectionId)
		}()
		self.server.HandleConnectionLost(connectionId)
	}()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case message := <-connection.send:
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
					// note that for websocket a deadline timeout cannot be recovered
					glog.Infof("[ws]%s-> error = %s\n", connectionId, err)
					return
				}
				glog.V(2).Infof("[ws]%s->\n", connectionId)
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
				glog.V(1).Infof("[ws]%s<- error = %s\n", connectionId, err)
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
					glog.Infof("[ws]drop %s<- error = %s\n", connectionId, err)
					continue
				}
				glog.V(2).Infof("[ws]%s<-\n", connectionId)
				self.server.HandleMessage(connectionId, message)
			default:
				glog.V(2).Infof("[ws]other=%d %s<-\n", messageType, connectionId)
			}
		}
	}()

	select {
	case <-handleCtx.Done():
	}
}

func (self *WsServer) Send(connectionId protocol.Id, message protocol.Message) error {
	b, err := protocol.EncodeFrame(message)
	if err != nil {
		return err
	}

	self.mutex.Lock()
	connection, ok := self.connections[connectionId]
	self.mutex.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionLost, connectionId)
	}
	return self.enqueue(connection, b)
}

func (self *WsServer) Broadcast(message protocol.Message, excludeConnectionIds ...protocol.Id) error {
	b, err := protocol.EncodeFrame(message)
	if err != nil {
		return err
	}

	exclude := map[protocol.Id]bool{}
	for _, connectionId := range excludeConnectionIds {
		exclude[connectionId] = true
	}

	self.mutex.Lock()
	connections := maps.Clone(self.connections)
	self.mutex.Unlock()

	var errs []error
	for connectionId, connection := range connections {
		if exclude[connectionId] {
			continue
		}
		if err := self.enqueue(connection, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// a connection that cannot take a message within the write timeout is closed
func (self *WsServer) enqueue(connection *wsConnection, b []byte) error {
	select {
	case <-connection.ctx.Done():
		return fmt.Errorf("%w: %s", ErrConnectionLost, connection.connectionId)
	case connection.send <- b:
		return nil
	case <-time.After(self.settings.WriteTimeout):
		glog.Infof("[ws]send timeout %s, closing\n", connection.connectionId)
		connection.cancel()
		return fmt.Errorf("%w: send timeout %s", ErrConnectionLost, connection.connectionId)
	}
}

func (self *WsServer) Close() {
	self.cancel()
}
