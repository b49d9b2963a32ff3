package replica

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/syncgraph/graph"
)

type testNetwork struct {
	ctx      context.Context
	server   *Server
	wsServer *WsServer
	url      string
}

func newTestNetwork(t *testing.T) *testNetwork {
	ctx, cancel := context.WithCancel(context.Background())

	serverSettings := DefaultServerSettings()
	// below the client ack timeout
	serverSettings.DeliveryTimeout = time.Second
	server := NewServer(ctx, serverSettings)
	wsServer := NewWsServerWithDefaults(ctx, server)
	httpServer := httptest.NewServer(wsServer)
	t.Cleanup(func() {
		cancel()
		httpServer.Close()
	})

	return &testNetwork{
		ctx:      ctx,
		server:   server,
		wsServer: wsServer,
		url:      "ws" + strings.TrimPrefix(httpServer.URL, "http"),
	}
}

func testClientSettings() *ClientSettings {
	settings := DefaultClientSettings()
	settings.ReconnectTimeout = 50 * time.Millisecond
	settings.AckTimeout = 2 * time.Second
	return settings
}

func (self *testNetwork) newClient(t *testing.T) *Client {
	client, err := NewClient(self.ctx, self.url, testClientSettings())
	assert.Equal(t, err, nil)
	t.Cleanup(client.Close)
	return client
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	end := time.Now().Add(5 * time.Second)
	for !condition() {
		if end.Before(time.Now()) {
			t.Fatal("condition not reached")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// flushDispatch waits until the listener callbacks queued so far have run
func flushDispatch(t *testing.T, client *Client) {
	t.Helper()
	done := make(chan struct{})
	client.dispatch.Add(func() {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not drain")
	}
}

func hasEvent(recorder *recorder, event string) func() bool {
	return func() bool {
		for _, e := range recorder.Events() {
			if e == event {
				return true
			}
		}
		return false
	}
}

func TestClientInitialSnapshot(t *testing.T) {
	network := newTestNetwork(t)

	network.server.AddVertex("A", graph.Attributes{"name": "a"})
	network.server.AddVertex("B", nil)
	network.server.AddEdge("AB", "A", "B", false, graph.Attributes{"weight": 3})

	client := network.newClient(t)
	assert.Equal(t, client.Synced(), true)

	vertexIds, err := client.Vertices(nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, vertexIds, []string{"A", "B"})
	weight, err := client.EdgeAttribute("AB", "weight")
	assert.Equal(t, err, nil)
	assert.Equal(t, weight, float64(3))
	edgeIds, err := client.EdgesBetween("A", "B", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, edgeIds, []string{"AB"})

	waitFor(t, func() bool {
		_, syncedCount := network.server.ConnectionCount()
		return syncedCount == 1
	})
}

func TestClientCommitVisibleOnReturn(t *testing.T) {
	network := newTestNetwork(t)
	a := network.newClient(t)
	b := network.newClient(t)

	aEvents := &recorder{}
	a.AddListener(&recordingListener{recorder: aEvents})
	bEvents := &recorder{}
	b.AddListener(&recordingListener{recorder: bEvents})

	vertexId, err := a.AddVertex("", graph.Attributes{"k": "v"})
	assert.Equal(t, err, nil)
	assert.Equal(t, vertexId, "V0")

	// the broadcast precedes the ack on the submitter's connection
	hasVertex, err := a.HasVertex(vertexId)
	assert.Equal(t, err, nil)
	assert.Equal(t, hasVertex, true)
	// echo is off, so the submitter's listeners are not told
	flushDispatch(t, a)
	assert.Equal(t, hasEvent(aEvents, "vertex_added V0")(), false)

	// the peer's listeners ran before the call returned
	assert.Equal(t, hasEvent(bEvents, "vertex_added V0")(), true)
	value, err := b.VertexAttribute("V0", "k")
	assert.Equal(t, err, nil)
	assert.Equal(t, value, "v")

	serverValue, _ := network.server.VertexAttribute("V0", "k")
	assert.Equal(t, serverValue, "v")

	for i := range 300 {
		vertexId, err := a.AddVertex("", graph.Attributes{"i": i})
		assert.Equal(t, err, nil)
		if !hasEvent(bEvents, fmt.Sprintf("vertex_added %s", vertexId))() {
			t.Fatalf("vertex %d (%s) not delivered to the peer on return", i, vertexId)
		}
	}
	added := 0
	for _, event := range bEvents.Events() {
		if strings.HasPrefix(event, "vertex_added ") {
			added += 1
		}
	}
	assert.Equal(t, added, 301)
}

// reactingListener answers every added vertex with an attribute set from inside the callback
type reactingListener struct {
	BaseListener
	client *Client
	errs   chan error
}

func (self *reactingListener) VertexAdded(vertexId string, attributes graph.Attributes) {
	self.errs <- self.client.SetVertexAttribute(vertexId, "seen", true)
}

func TestClientListenerCommits(t *testing.T) {
	network := newTestNetwork(t)
	a := network.newClient(t)
	b := network.newClient(t)

	errs := make(chan error, 16)
	b.AddListener(&reactingListener{
		client: b,
		errs:   errs,
	})

	start := time.Now()
	vertexId, err := a.AddVertex("", nil)
	assert.Equal(t, err, nil)
	// the listener's commit completed before the add was delivered
	select {
	case err := <-errs:
		assert.Equal(t, err, nil)
	default:
		t.Fatal("listener did not commit before the add returned")
	}
	assert.Equal(t, time.Since(start) < testClientSettings().AckTimeout, true)

	value, err := a.VertexAttribute(vertexId, "seen")
	assert.Equal(t, err, nil)
	assert.Equal(t, value, true)

	// the listener can also be triggered by a mutation without commit
	a.SetCommitRequired(false)
	_, err = a.AddVertex("W", nil)
	assert.Equal(t, err, nil)
	select {
	case err := <-errs:
		assert.Equal(t, err, nil)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not commit")
	}
	waitFor(t, func() bool {
		value, _ := a.VertexAttribute("W", "seen")
		return value == true
	})
}

func TestClientUrl(t *testing.T) {
	network := newTestNetwork(t)
	client := network.newClient(t)
	assert.Equal(t, client.Url(), network.url)

	thin, err := NewThinClient(network.ctx, network.url, testClientSettings())
	assert.Equal(t, err, nil)
	defer thin.Close()
	assert.Equal(t, thin.Url(), network.url)
}

func TestClientEcho(t *testing.T) {
	network := newTestNetwork(t)
	client := network.newClient(t)
	events := &recorder{}
	client.AddListener(&recordingListener{recorder: events})

	assert.Equal(t, client.CommitRequired(), true)
	assert.Equal(t, client.Echo(), false)
	client.SetEcho(true)

	_, err := client.AddVertex("X", nil)
	assert.Equal(t, err, nil)
	flushDispatch(t, client)
	assert.Equal(t, hasEvent(events, "vertex_added X")(), true)

	// requiring commits turns echo off
	client.SetCommitRequired(true)
	assert.Equal(t, client.Echo(), false)
	_, err = client.AddVertex("Y", nil)
	assert.Equal(t, err, nil)
	flushDispatch(t, client)
	assert.Equal(t, hasEvent(events, "vertex_added Y")(), false)
}

func TestClientNoCommit(t *testing.T) {
	network := newTestNetwork(t)
	client := network.newClient(t)
	client.SetCommitRequired(false)

	vertexId, err := client.AddVertex("", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, vertexId, "")

	vertexId, err = client.AddVertex("N", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, vertexId, "N")

	waitFor(t, func() bool {
		hasVertex, _ := client.HasVertex("N")
		return hasVertex
	})
	vertexIds, _ := network.server.Vertices(nil)
	assert.Equal(t, vertexIds, []string{"N", "V0"})
}

func TestClientRemoteErrors(t *testing.T) {
	network := newTestNetwork(t)
	client := network.newClient(t)

	_, err := client.AddVertex("A", nil)
	assert.Equal(t, err, nil)

	_, err = client.AddVertex("A", nil)
	var remoteErr *RemoteError
	assert.Equal(t, errors.As(err, &remoteErr), true)
	assert.Equal(t, errors.Is(err, graph.ErrDuplicateId), true)

	_, err = client.AddEdge("", "A", "missing", false, nil)
	assert.Equal(t, errors.Is(err, graph.ErrUnknownVertex), true)

	err = client.RemoveEdge("missing")
	assert.Equal(t, errors.Is(err, graph.ErrUnknownEdge), true)

	// rejected locally before sending
	err = client.SetVertexAttribute("A", "bad", make(chan int))
	assert.Equal(t, errors.Is(err, graph.ErrInvalidValue), true)
	var notRemote *RemoteError
	assert.Equal(t, errors.As(err, &notRemote), false)
}

func TestClientAttributesAndEdges(t *testing.T) {
	network := newTestNetwork(t)
	a := network.newClient(t)
	b := network.newClient(t)
	bEvents := &recorder{}
	b.AddListener(&recordingListener{recorder: bEvents})

	a.AddVertex("A", nil)
	a.AddVertex("B", nil)
	edgeId, err := a.AddEdge("", "A", "B", true, graph.Attributes{"kind": "link"})
	assert.Equal(t, err, nil)
	assert.Equal(t, edgeId, "E0")
	assert.Equal(t, a.SetEdgeAttributes(edgeId, graph.Attributes{"cost": 1.5}), nil)
	assert.Equal(t, a.RemoveEdgeAttribute(edgeId, "kind"), nil)
	assert.Equal(t, a.SetVertexAttribute("A", "seen", true), nil)

	waitFor(t, hasEvent(bEvents, "vertex_attr_set A seen=true"))

	attributes, err := b.EdgeAttributes(edgeId)
	assert.Equal(t, err, nil)
	assert.Equal(t, attributes, graph.Attributes{"cost": 1.5})
	undirected, err := b.IsEdgeUndirected(edgeId)
	assert.Equal(t, err, nil)
	assert.Equal(t, undirected, true)
	other, err := b.EdgeOtherEndpoint(edgeId, "B")
	assert.Equal(t, err, nil)
	assert.Equal(t, other, "A")
	inDegree, _ := b.InDegree("A")
	assert.Equal(t, inDegree, 1)

	clone, err := b.Clone()
	assert.Equal(t, err, nil)
	assert.Equal(t, clone.String(), network.server.store.String())

	assert.Equal(t, a.RemoveVertex("B"), nil)
	waitFor(t, hasEvent(bEvents, "vertex_removed B map[] [E0]"))
	hasEdge, _ := b.HasEdge(edgeId)
	assert.Equal(t, hasEdge, false)
	// the clone is detached
	assert.Equal(t, clone.HasEdge(edgeId), true)
}

func TestClientLeaseReleasedOnClose(t *testing.T) {
	network := newTestNetwork(t)
	observer := network.newClient(t)
	events := &recorder{}
	observer.AddListener(&recordingListener{recorder: events})

	owner, err := NewClient(network.ctx, network.url, testClientSettings())
	assert.Equal(t, err, nil)

	_, err = owner.AddVertex("worker", graph.Attributes{"state": "busy"})
	assert.Equal(t, err, nil)
	owner.SetPersistentVertexMode(true)
	_, err = owner.AddVertex("job", nil)
	assert.Equal(t, err, nil)
	_, err = owner.AddEdge("assigned", "job", "worker", false, nil)
	assert.Equal(t, err, nil)

	waitFor(t, hasEvent(events, "edge_added assigned job worker"))
	owner.Close()

	waitFor(t, hasEvent(events, "vertex_removed worker map[state:busy] [assigned]"))
	hasWorker, _ := observer.HasVertex("worker")
	assert.Equal(t, hasWorker, false)
	hasJob, _ := observer.HasVertex("job")
	assert.Equal(t, hasJob, true)

	_, err = owner.AddVertex("late", nil)
	assert.Equal(t, errors.Is(err, ErrClosed), true)
}

func TestThinClient(t *testing.T) {
	network := newTestNetwork(t)
	observer := network.newClient(t)
	events := &recorder{}
	observer.AddListener(&recordingListener{recorder: events})

	settings := DefaultThinClientSettings()
	settings.AckTimeout = 2 * time.Second
	thin, err := NewThinClient(network.ctx, network.url, settings)
	assert.Equal(t, err, nil)
	defer thin.Close()

	vertexId, err := thin.AddVertex("", nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, vertexId, "V0")
	waitFor(t, hasEvent(events, "vertex_added V0"))

	_, err = thin.HasVertex(vertexId)
	assert.Equal(t, errors.Is(err, ErrUnsupportedOnThinClient), true)
	_, err = thin.Vertices(nil)
	assert.Equal(t, errors.Is(err, ErrUnsupportedOnThinClient), true)
	_, err = thin.Clone()
	assert.Equal(t, errors.Is(err, ErrUnsupportedOnThinClient), true)

	_, err = thin.AddVertex(vertexId, nil)
	assert.Equal(t, errors.Is(err, graph.ErrDuplicateId), true)

	// thin clients lease their vertices like full clients
	thin.Close()
	waitFor(t, hasEvent(events, "vertex_removed V0 map[] []"))
}

func TestClientResync(t *testing.T) {
	network := newTestNetwork(t)
	client := network.newClient(t)
	events := &recorder{}
	client.AddListener(&recordingListener{recorder: events})

	_, err := client.AddVertex("leased", nil)
	assert.Equal(t, err, nil)

	// drop the connection from the server side
	func() {
		network.wsServer.mutex.Lock()
		defer network.wsServer.mutex.Unlock()
		for _, connection := range network.wsServer.connections {
			connection.cancel()
		}
	}()

	waitFor(t, hasEvent(events, "connection_lost"))
	waitFor(t, hasEvent(events, "connected"))
	waitFor(t, client.Synced)

	// the lease ended with the old connection
	hasVertex, err := client.HasVertex("leased")
	assert.Equal(t, err, nil)
	assert.Equal(t, hasVertex, false)

	_, err = client.AddVertex("after", nil)
	assert.Equal(t, err, nil)
	hasVertex, _ = network.server.HasVertex("after")
	assert.Equal(t, hasVertex, true)
}
