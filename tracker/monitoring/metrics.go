// Package monitoring exposes the report sensor's watch-mode observability surface:
// Prometheus counters for sensor activity and a liveness endpoint.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SensorMetrics counts sensor evaluations and the render work they trigger.
type SensorMetrics struct {
	registry *prometheus.Registry

	Evaluations    prometheus.Counter
	Emissions      prometheus.Counter
	Renders        prometheus.Counter
	RenderFailures prometheus.Counter
	LastEvaluation prometheus.Gauge
}

// NewSensorMetrics builds and registers the sensor metric set on its own registry, so
// tests can hold several instances without duplicate-registration panics.
func NewSensorMetrics() *SensorMetrics {
	m := &SensorMetrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_evaluations_total",
			Help: "Number of sensor evaluations performed.",
		}),
		Emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_emissions_total",
			Help: "Number of render work items emitted by the sensor.",
		}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_renders_total",
			Help: "Number of PDF reports rendered successfully.",
		}),
		RenderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_render_failures_total",
			Help: "Number of PDF renders that failed.",
		}),
		LastEvaluation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensor_last_evaluation_timestamp_seconds",
			Help: "Unix time of the most recent sensor evaluation.",
		}),
	}
	m.registry.MustRegister(m.Evaluations, m.Emissions, m.Renders, m.RenderFailures, m.LastEvaluation)
	return m
}

// Handler serves the metric set in Prometheus exposition format.
func (m *SensorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
