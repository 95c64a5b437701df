// Package metrics holds the Prometheus collectors exposed by the live-reload server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brisk"

// Metrics is a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	proxyErrors  *prometheus.CounterVec
	reloads      prometheus.Counter
	clients      prometheus.Gauge
	droppedPeers prometheus.Counter
	taskRuns     *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Dev server requests by handling stage and status code.",
		}, []string{"stage", "code"}),
		proxyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "proxy_errors_total",
			Help:      "Proxied requests whose upstream could not be reached.",
		}, []string{"prefix"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livereload",
			Name:      "notifications_total",
			Help:      "Changed paths broadcast to live-reload clients.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "livereload",
			Name:      "clients",
			Help:      "Connected live-reload clients.",
		}),
		droppedPeers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livereload",
			Name:      "dropped_clients_total",
			Help:      "Clients disconnected because their send buffer was full.",
		}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "task_runs_total",
			Help:      "Tasks re-run by the watcher, by outcome.",
		}, []string{"task", "result"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.proxyErrors,
		m.reloads,
		m.clients,
		m.droppedPeers,
		m.taskRuns,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest counts a dev server request answered by stage.
func (m *Metrics) ObserveRequest(stage string, code int) {
	m.requests.WithLabelValues(stage, strconv.Itoa(code)).Inc()
}

// ObserveProxyError counts an unreachable upstream for the route prefix.
func (m *Metrics) ObserveProxyError(prefix string) {
	m.proxyErrors.WithLabelValues(prefix).Inc()
}

// ObserveReload counts paths broadcast to clients.
func (m *Metrics) ObserveReload(paths int) {
	m.reloads.Add(float64(paths))
}

// SetClients records the number of connected clients.
func (m *Metrics) SetClients(n int) {
	m.clients.Set(float64(n))
}

// ObserveDroppedClient counts a client dropped for being too slow.
func (m *Metrics) ObserveDroppedClient() {
	m.droppedPeers.Inc()
}

// ObserveTaskRun counts a watcher-triggered task run.
func (m *Metrics) ObserveTaskRun(task string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.taskRuns.WithLabelValues(task, result).Inc()
}
