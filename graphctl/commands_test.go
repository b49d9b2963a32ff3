package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/replica"
)

func TestParseAttributes(t *testing.T) {
	attributes, err := parseAttributes([]string{"n=1", "ok=true", "name=a", "empty=", "ratio=0.5", "tags=[x, y]"})
	assert.Equal(t, err, nil)
	assert.Equal(t, attributes, graph.Attributes{
		"n":     float64(1),
		"ok":    true,
		"name":  "a",
		"empty": "",
		"ratio": 0.5,
		"tags":  []any{"x", "y"},
	})

	_, err = parseAttributes([]string{"novalue"})
	assert.NotEqual(t, err, nil)
	_, err = parseAttributes([]string{"=1"})
	assert.NotEqual(t, err, nil)
}

func TestServerMux(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graphServer := replica.NewServerWithDefaults(ctx)
	wsServer := replica.NewWsServerWithDefaults(ctx, graphServer)
	httpServer := httptest.NewServer(newServerMux(graphServer, wsServer))
	defer httpServer.Close()
	defer cancel()

	config := DefaultConfig()
	config.Url = "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/sync"
	config.Client.ReconnectTimeout = 50 * time.Millisecond

	client, err := replica.NewClient(ctx, config.Url, config.ClientSettings(false))
	assert.Equal(t, err, nil)
	defer client.Close()

	_, err = client.AddVertex("A", graph.Attributes{"n": 1})
	assert.Equal(t, err, nil)

	response, err := http.Get(httpServer.URL + "/status")
	assert.Equal(t, err, nil)
	defer response.Body.Close()

	var status map[string]any
	err = json.NewDecoder(response.Body).Decode(&status)
	assert.Equal(t, err, nil)
	assert.Equal(t, status["status"], "ok")
	assert.Equal(t, status["connections"], float64(1))
	assert.Equal(t, status["vertices"], float64(1))

	metricsResponse, err := http.Get(httpServer.URL + "/metrics")
	assert.Equal(t, err, nil)
	defer metricsResponse.Body.Close()
	assert.Equal(t, metricsResponse.StatusCode, http.StatusOK)
}
