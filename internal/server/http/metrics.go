package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the process counters exposed on /metrics.
type Metrics struct {
	registry   *prometheus.Registry
	AgentCalls *prometheus.CounterVec
	Sessions   *prometheus.CounterVec
}

// NewMetrics builds the counter set on a private registry so tests can run
// side by side without duplicate registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		AgentCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_agent_calls_total",
			Help: "Completion calls issued per agent, including retries.",
		}, []string{"agent"}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_sessions_total",
			Help: "Finished consensus sessions by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the standard exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
