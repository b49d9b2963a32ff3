package replica

import (
	"time"
)

const DefaultAckTimeout = 5 * time.Second

type ClientSettings struct {
	ReconnectTimeout   time.Duration
	HttpConnectTimeout time.Duration
	WsHandshakeTimeout time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	AckTimeout         time.Duration
	// ack deposits with no waiter are dropped after this
	AckRetention   time.Duration
	SendBufferSize int
	// initial modes
	CommitRequired       bool
	Echo                 bool
	PersistentVertexMode bool
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		ReconnectTimeout:     1500 * time.Millisecond,
		HttpConnectTimeout:   2 * time.Second,
		WsHandshakeTimeout:   2 * time.Second,
		PingTimeout:          1 * time.Second,
		WriteTimeout:         5 * time.Second,
		ReadTimeout:          15 * time.Second,
		AckTimeout:           DefaultAckTimeout,
		AckRetention:         DefaultAckTimeout,
		SendBufferSize:       32,
		CommitRequired:       true,
		Echo:                 false,
		PersistentVertexMode: false,
	}
}

func DefaultThinClientSettings() *ClientSettings {
	settings := DefaultClientSettings()
	settings.ReconnectTimeout = 250 * time.Millisecond
	return settings
}

type ServerSettings struct {
	AllowDuplicates bool
	// how long a commit required ack waits for synced peers to confirm delivery.
	// Peers that have not confirmed by then are dropped from the wait.
	// Keep this below the client `AckTimeout`.
	DeliveryTimeout time.Duration
}

func DefaultServerSettings() *ServerSettings {
	return &ServerSettings{
		AllowDuplicates: false,
		DeliveryTimeout: 3 * time.Second,
	}
}

type WsServerSettings struct {
	WsHandshakeTimeout  time.Duration
	PingTimeout         time.Duration
	WriteTimeout        time.Duration
	ReadTimeout         time.Duration
	SendBufferSize      int
	ReadBufferByteSize  int
	WriteBufferByteSize int
}

func DefaultWsServerSettings() *WsServerSettings {
	return &WsServerSettings{
		WsHandshakeTimeout:  2 * time.Second,
		PingTimeout:         1 * time.Second,
		WriteTimeout:        5 * time.Second,
		ReadTimeout:         15 * time.Second,
		SendBufferSize:      1024,
		ReadBufferByteSize:  4096,
		WriteBufferByteSize: 4096,
	}
}
