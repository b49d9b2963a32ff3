package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"
	"google.golang.org/protobuf/encoding/protojson"
	"gopkg.in/yaml.v3"

	"github.com/bringyour/syncgraph/graph"
	"github.com/bringyour/syncgraph/protocol"
	"github.com/bringyour/syncgraph/replica"
)

// mutator is the part of the full and thin clients used by the mutation commands
type mutator interface {
	replica.Graph
	SetPersistentVertexMode(persistentVertexMode bool)
}

func connectMutator(ctx context.Context, opts docopt.Opts, config *Config) (mutator, error) {
	if thin, _ := opts.Bool("--thin"); thin {
		client, err := replica.NewThinClient(ctx, config.Url, config.ClientSettings(true))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	client, err := replica.NewClient(ctx, config.Url, config.ClientSettings(false))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// parseAttributes parses `key=value` arguments. Values are yaml, so `n=1` is a number.
func parseAttributes(args []string) (graph.Attributes, error) {
	attributes := graph.Attributes{}
	for _, arg := range args {
		key, valueStr, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute must be key=value: %s", arg)
		}
		var value any
		if err := yaml.Unmarshal([]byte(valueStr), &value); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
		if value == nil && valueStr == "" {
			value = ""
		}
		attributes[key] = value
	}
	return graph.NormalizeAttributes(attributes)
}

func requireAttributes(opts docopt.Opts) (graph.Attributes, error) {
	args, _ := opts["<attribute>"].([]string)
	return parseAttributes(args)
}

func dump(ctx context.Context, opts docopt.Opts, config *Config) error {
	client, err := replica.NewClient(ctx, config.Url, config.ClientSettings(false))
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := client.Clone()
	if err != nil {
		return err
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(store.String())
		return nil
	}

	frame, err := protocol.ToFrame(&protocol.SyncReply{
		MessageHeader: protocol.NewHeader(),
		Snapshot:      store.Snapshot(),
	})
	if err != nil {
		return err
	}
	snapshotJson, err := protojson.Marshal(frame.Fields["snapshot"])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", snapshotJson)
	return nil
}

func watch(ctx context.Context, opts docopt.Opts, config *Config) error {
	client, err := replica.NewClient(ctx, config.Url, config.ClientSettings(false))
	if err != nil {
		return err
	}
	defer client.Close()

	if echo, _ := opts.Bool("--echo"); echo {
		client.SetEcho(true)
	}

	fmt.Printf("watching %s (%d vertices)\n", config.Url, requireCount(client.Vertices(nil)))

	client.AddListener(&watchListener{})

	select {
	case <-ctx.Done():
	case <-client.Done():
	}
	return nil
}

func requireCount(ids []string, err error) int {
	if err != nil {
		return 0
	}
	return len(ids)
}

type watchListener struct {
}

func (self *watchListener) VertexAdded(vertexId string, attributes graph.Attributes) {
	fmt.Printf("+vertex %s %v\n", vertexId, map[string]any(attributes))
}

func (self *watchListener) VertexRemoved(vertexId string, attributes graph.Attributes, removedEdges []*graph.RemovedEdge) {
	fmt.Printf("-vertex %s %v\n", vertexId, map[string]any(attributes))
	for _, removedEdge := range removedEdges {
		fmt.Printf("-edge %s %s %s\n", removedEdge.Id, removedEdge.SourceId, removedEdge.TargetId)
	}
}

func (self *watchListener) VertexAttributeSet(vertexId string, key string, value any) {
	fmt.Printf("vertex %s %s=%v\n", vertexId, key, value)
}

func (self *watchListener) VertexAttributesSet(vertexId string, attributes graph.Attributes) {
	fmt.Printf("vertex %s %v\n", vertexId, map[string]any(attributes))
}

func (self *watchListener) VertexAttributeRemoved(vertexId string, key string) {
	fmt.Printf("vertex %s -%s\n", vertexId, key)
}

func (self *watchListener) EdgeAdded(edgeId string, sourceId string, targetId string, undirected bool, attributes graph.Attributes) {
	arrow := "->"
	if undirected {
		arrow = "--"
	}
	fmt.Printf("+edge %s %s%s%s %v\n", edgeId, sourceId, arrow, targetId, map[string]any(attributes))
}

func (self *watchListener) EdgeRemoved(edgeId string, sourceId string, targetId string, attributes graph.Attributes) {
	fmt.Printf("-edge %s %s %s\n", edgeId, sourceId, targetId)
}

func (self *watchListener) EdgeAttributeSet(edgeId string, key string, value any) {
	fmt.Printf("edge %s %s=%v\n", edgeId, key, value)
}

func (self *watchListener) EdgeAttributesSet(edgeId string, attributes graph.Attributes) {
	fmt.Printf("edge %s %v\n", edgeId, map[string]any(attributes))
}

func (self *watchListener) EdgeAttributeRemoved(edgeId string, key string) {
	fmt.Printf("edge %s -%s\n", edgeId, key)
}

func (self *watchListener) Connected(connectionId protocol.Id) {
	fmt.Printf("connected %s\n", connectionId)
}

func (self *watchListener) ConnectionLost(connectionId protocol.Id) {
	fmt.Printf("connection lost %s\n", connectionId)
}

func addVertex(ctx context.Context, opts docopt.Opts, config *Config) error {
	attributes, err := requireAttributes(opts)
	if err != nil {
		return err
	}
	vertexId, _ := opts.String("--id")
	persistent, _ := opts.Bool("--persistent")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	client.SetPersistentVertexMode(persistent)
	vertexId, err = client.AddVertex(vertexId, attributes)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", vertexId)
	return nil
}

func removeVertex(ctx context.Context, opts docopt.Opts, config *Config) error {
	vertexId, _ := opts.String("<vertex_id>")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.RemoveVertex(vertexId)
}

func setVertex(ctx context.Context, opts docopt.Opts, config *Config) error {
	attributes, err := requireAttributes(opts)
	if err != nil {
		return err
	}
	vertexId, _ := opts.String("<vertex_id>")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.SetVertexAttributes(vertexId, attributes)
}

func addEdge(ctx context.Context, opts docopt.Opts, config *Config) error {
	attributes, err := requireAttributes(opts)
	if err != nil {
		return err
	}
	edgeId, _ := opts.String("--id")
	sourceId, _ := opts.String("<source_id>")
	targetId, _ := opts.String("<target_id>")
	undirected, _ := opts.Bool("--undirected")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	edgeId, err = client.AddEdge(edgeId, sourceId, targetId, undirected, attributes)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", edgeId)
	return nil
}

func removeEdge(ctx context.Context, opts docopt.Opts, config *Config) error {
	edgeId, _ := opts.String("<edge_id>")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.RemoveEdge(edgeId)
}

func setEdge(ctx context.Context, opts docopt.Opts, config *Config) error {
	attributes, err := requireAttributes(opts)
	if err != nil {
		return err
	}
	edgeId, _ := opts.String("<edge_id>")

	client, err := connectMutator(ctx, opts, config)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.SetEdgeAttributes(edgeId, attributes)
}
