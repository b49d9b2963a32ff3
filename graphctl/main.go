package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
)

const Version = "0.1.0"

const DefaultAddr = ":8080"
const DefaultUrl = "ws://127.0.0.1:8080/sync"

func main() {
	usage := fmt.Sprintf(
		`Replicated graph control.

The defaults are:
    addr: %s
    url: %s

Usage:
    graphctl server [options]
    graphctl dump [options]
    graphctl watch [options]
    graphctl add-vertex [options] [<attribute>...]
    graphctl remove-vertex [options] <vertex_id>
    graphctl set-vertex [options] <vertex_id> <attribute>...
    graphctl add-edge [options] <source_id> <target_id> [<attribute>...]
    graphctl remove-edge [options] <edge_id>
    graphctl set-edge [options] <edge_id> <attribute>...

Attributes are key=value. Values are parsed as yaml scalars, e.g. n=1, ok=true, name=a.
Vertices added without --persistent are removed when graphctl exits.

Options:
    -h --help             Show this screen.
    --version             Show version.
    --config=<config>     Yaml config overlaid on the defaults.
    --addr=<addr>         Server listen address.
    --url=<url>           Server url.
    --allow_duplicates    Accept duplicate ids on the server.
    --id=<id>             Id of the added vertex or edge. Generated when omitted.
    --persistent          Keep the added vertex after graphctl exits.
    --undirected          Add an undirected edge.
    --thin                Connect as a thin client.
    --echo                Also report changes made by this client.
    --log=<level>         Verbose log level [default: 0].`,
		DefaultAddr,
		DefaultUrl,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		panic(err)
	}

	initGlog(opts)

	config, err := requireConfig(opts)
	if err != nil {
		fmt.Printf("config error: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if server_, _ := opts.Bool("server"); server_ {
		err = server(ctx, opts, config)
	} else if dump_, _ := opts.Bool("dump"); dump_ {
		err = dump(ctx, opts, config)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		err = watch(ctx, opts, config)
	} else if addVertex_, _ := opts.Bool("add-vertex"); addVertex_ {
		err = addVertex(ctx, opts, config)
	} else if removeVertex_, _ := opts.Bool("remove-vertex"); removeVertex_ {
		err = removeVertex(ctx, opts, config)
	} else if setVertex_, _ := opts.Bool("set-vertex"); setVertex_ {
		err = setVertex(ctx, opts, config)
	} else if addEdge_, _ := opts.Bool("add-edge"); addEdge_ {
		err = addEdge(ctx, opts, config)
	} else if removeEdge_, _ := opts.Bool("remove-edge"); removeEdge_ {
		err = removeEdge(ctx, opts, config)
	} else if setEdge_, _ := opts.Bool("set-edge"); setEdge_ {
		err = setEdge(ctx, opts, config)
	}

	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
}

// glog reads its settings from the standard flag set
func initGlog(opts docopt.Opts) {
	flag.CommandLine.Parse([]string{})
	flag.Set("logtostderr", "true")
	if level, err := opts.String("--log"); err == nil {
		flag.Set("v", level)
	}
}
