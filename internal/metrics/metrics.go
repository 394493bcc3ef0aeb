// Package metrics holds the Prometheus collectors exported by simrun.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every simrun collector is registered with.
var Registry = prometheus.NewRegistry()

var (
	// Lifecycle metrics
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simrun",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of attempted job transitions by event and result",
		},
		[]string{"event", "from", "result"},
	)

	// Provisioning metrics
	provisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simrun",
			Subsystem: "provider",
			Name:      "provisions_total",
			Help:      "Total number of instance provisioning attempts by result",
		},
		[]string{"result"},
	)

	provisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "simrun",
			Subsystem: "provider",
			Name:      "provision_duration_seconds",
			Help:      "Duration of instance provisioning in seconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s to ~10min
		},
	)

	rollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simrun",
			Subsystem: "provider",
			Name:      "rollbacks_total",
			Help:      "Total number of provisioning rollbacks by result",
		},
		[]string{"result"},
	)

	// Task queue metrics
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simrun",
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "Total number of task attempts by task name and result",
		},
		[]string{"task", "result"},
	)

	// Hetzner Cloud API metrics
	hcloudAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simrun",
			Subsystem: "hcloud",
			Name:      "api_calls_total",
			Help:      "Total number of Hetzner Cloud API calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	hcloudAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simrun",
			Subsystem: "hcloud",
			Name:      "api_latency_seconds",
			Help:      "Latency of Hetzner Cloud API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		transitionsTotal,
		provisionsTotal,
		provisionDuration,
		rollbacksTotal,
		tasksTotal,
		hcloudAPICallsTotal,
		hcloudAPILatency,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Result returns the conventional result label for err.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordTransition records a transition attempt.
func RecordTransition(event, from string, err error) {
	transitionsTotal.WithLabelValues(event, from, Result(err)).Inc()
}

// RecordProvision records a provisioning attempt and how long it took.
func RecordProvision(err error, seconds float64) {
	provisionsTotal.WithLabelValues(Result(err)).Inc()
	provisionDuration.Observe(seconds)
}

// RecordRollback records a rollback and whether every resource was removed.
func RecordRollback(err error) {
	rollbacksTotal.WithLabelValues(Result(err)).Inc()
}

// RecordTask records a single task attempt.
func RecordTask(task string, err error) {
	tasksTotal.WithLabelValues(task, Result(err)).Inc()
}

// RecordHCloudAPICall records a Hetzner Cloud API call.
func RecordHCloudAPICall(operation string, err error, latency float64) {
	hcloudAPICallsTotal.WithLabelValues(operation, Result(err)).Inc()
	hcloudAPILatency.WithLabelValues(operation).Observe(latency)
}
