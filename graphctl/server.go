package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bringyour/syncgraph/replica"
)

const ShutdownTimeout = 5 * time.Second

func server(ctx context.Context, opts docopt.Opts, config *Config) error {
	graphServer := replica.NewServer(ctx, config.ServerSettings())
	defer graphServer.Close()

	wsServer := replica.NewWsServer(ctx, graphServer, config.WsServerSettings())
	defer wsServer.Close()

	httpServer := &http.Server{
		Addr:    config.Server.Addr,
		Handler: newServerMux(graphServer, wsServer),
	}

	fmt.Printf("graphctl %s listening on %s\n", Version, config.Server.Addr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		glog.V(1).Infof("[s]shutdown\n")
		// hijacked websocket connections are closed with the ws server
		wsServer.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newServerMux(graphServer *replica.Server, wsServer *replica.WsServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/sync", wsServer)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/status", &Status{
		server: graphServer,
	})
	return mux
}

type Status struct {
	server *replica.Server
}

func (self *Status) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type StatusResult struct {
		Version           string `json:"version"`
		Status            string `json:"status"`
		Connections       int    `json:"connections"`
		SyncedConnections int    `json:"synced_connections"`
		Vertices          int    `json:"vertices"`
		Edges             int    `json:"edges"`
	}

	connections, syncedConnections := self.server.ConnectionCount()
	result := &StatusResult{
		Version:           Version,
		Status:            "ok",
		Connections:       connections,
		SyncedConnections: syncedConnections,
	}
	if vertexIds, err := self.server.Vertices(nil); err == nil {
		result.Vertices = len(vertexIds)
	}
	if edgeIds, err := self.server.Edges(nil); err == nil {
		result.Edges = len(edgeIds)
	}

	responseJson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJson)
}
