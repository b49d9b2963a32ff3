package replica

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// serverMutationsTotal counts submitted mutations by kind and result
	serverMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncgraph_server_mutations_total",
		Help: "Total mutations handled by the server by kind and result",
	}, []string{"kind", "result"})

	serverConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "syncgraph_server_connections",
		Help: "Connections currently open on the server",
	})

	// serverLeaseReleasesTotal counts vertices removed because the leasing connection was lost
	serverLeaseReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "syncgraph_server_lease_releases_total",
		Help: "Total leased vertices removed on connection loss",
	})

	// serverDeliveryTimeoutsTotal counts peers dropped from a commit wait without confirming delivery
	serverDeliveryTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "syncgraph_server_delivery_timeouts_total",
		Help: "Total peers that did not confirm a commit required broadcast in time",
	})

	listenerPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncgraph_listener_panics_total",
		Help: "Total listener callbacks that panicked by side",
	}, []string{"side"})

	clientConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncgraph_client_connects_total",
		Help: "Total client connection attempts by mode and result",
	}, []string{"mode", "result"})

	// clientAckWaitDuration tracks how long commit required calls wait for the ack
	clientAckWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "syncgraph_client_ack_wait_seconds",
		Help:    "Time spent waiting for commit acks in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})
)

func mutationResult(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
