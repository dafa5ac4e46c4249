package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/*
Metrics exposes the server's RPC traffic counters on a private prometheus
registry, so tests can instantiate as many servers as they like without
duplicate-registration panics.
*/
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	TasksByState  *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskmill",
			Name:      "rpc_requests_total",
			Help:      "RPC requests dispatched, by method.",
		}, []string{"method"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskmill",
			Name:      "rpc_errors_total",
			Help:      "RPC error responses, by method and code.",
		}, []string{"method", "code"}),
		TasksByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "taskmill",
			Name:      "tasks_by_state",
			Help:      "Tasks currently held by the store, by lifecycle state.",
		}, []string{"state"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.ErrorsTotal,
		m.TasksByState,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) RecordRequest(method string) {
	m.RequestsTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordError(method string, code int) {
	m.ErrorsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// RecordTransition moves one task between state buckets; pass an empty from
// state for newly created tasks.
func (m *Metrics) RecordTransition(from, to string) {
	if from != "" {
		m.TasksByState.WithLabelValues(from).Dec()
	}

	if to != "" {
		m.TasksByState.WithLabelValues(to).Inc()
	}
}

// Handler serves the registry in the standard exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
