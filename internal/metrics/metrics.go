// Package metrics exposes Prometheus counters for the transaction store and
// its remote persistence path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder struct {
	remoteOps        *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	snapshotFailures prometheus.Counter
	retryPublished   prometheus.Counter
}

// NewRecorder registers all collectors on reg. Callers pass their own registry
// so tests can use an isolated one.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		remoteOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onetouch",
			Name:      "remote_operations_total",
			Help:      "Remote store operations by operation and outcome.",
		}, []string{"op", "status"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onetouch",
			Name:      "store_mutations_total",
			Help:      "In-memory store mutations by operation.",
		}, []string{"op"}),
		snapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "onetouch",
			Name:      "snapshot_failures_total",
			Help:      "Failed writes of the local fallback snapshot.",
		}),
		retryPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "onetouch",
			Name:      "retry_messages_published_total",
			Help:      "Failed remote operations handed to the retry queue.",
		}),
	}
}

// All methods tolerate a nil receiver so callers without metrics wired can
// pass nil instead of a stub.

func (r *Recorder) RemoteOp(op string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.remoteOps.WithLabelValues(op, status).Inc()
}

func (r *Recorder) Mutation(op string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op).Inc()
}

func (r *Recorder) SnapshotFailure() {
	if r == nil {
		return
	}
	r.snapshotFailures.Inc()
}

func (r *Recorder) RetryPublished() {
	if r == nil {
		return
	}
	r.retryPublished.Inc()
}
