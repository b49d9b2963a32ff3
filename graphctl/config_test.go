package main

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/syncgraph/replica"
)

func TestParseConfigOverlay(t *testing.T) {
	config, err := ParseConfig([]byte(`
url: ws://graph.local:9000/sync
server:
  allow_duplicates: true
  ping_timeout: 250ms
  delivery_timeout: 2s
client:
  ack_timeout: 750ms
  commit_required: false
`))
	assert.Equal(t, err, nil)

	assert.Equal(t, config.Url, "ws://graph.local:9000/sync")
	assert.Equal(t, config.Server.Addr, DefaultAddr)
	assert.Equal(t, config.Server.AllowDuplicates, true)
	assert.Equal(t, config.Server.PingTimeout, 250*time.Millisecond)
	assert.Equal(t, config.Server.ReadTimeout, replica.DefaultWsServerSettings().ReadTimeout)
	assert.Equal(t, config.Client.AckTimeout, 750*time.Millisecond)

	clientSettings := config.ClientSettings(false)
	assert.Equal(t, clientSettings.AckTimeout, 750*time.Millisecond)
	assert.Equal(t, clientSettings.CommitRequired, false)
	assert.Equal(t, clientSettings.ReconnectTimeout, replica.DefaultClientSettings().ReconnectTimeout)

	thinSettings := config.ClientSettings(true)
	assert.Equal(t, thinSettings.ReconnectTimeout, 250*time.Millisecond)

	assert.Equal(t, config.ServerSettings().AllowDuplicates, true)
	assert.Equal(t, config.ServerSettings().DeliveryTimeout, 2*time.Second)
	assert.Equal(t, config.WsServerSettings().PingTimeout, 250*time.Millisecond)
}

func TestParseConfigEmpty(t *testing.T) {
	config, err := ParseConfig([]byte{})
	assert.Equal(t, err, nil)
	assert.Equal(t, config, DefaultConfig())
}

func TestParseConfigError(t *testing.T) {
	_, err := ParseConfig([]byte("server: [1, 2"))
	assert.NotEqual(t, err, nil)
}
