// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the counters shared by both pipelines
type Metrics struct {
	registry *prometheus.Registry

	Polls          *prometheus.CounterVec // by pipeline, result
	Reconnects     *prometheus.CounterVec // by pipeline
	Lines          *prometheus.CounterVec // by pipeline, kind
	DecodeFailures *prometheus.CounterVec // by pipeline
	Alerts         *prometheus.CounterVec // by pipeline, kind, outcome
	UPSStatus      *prometheus.GaugeVec   // by ups, status; 1 for the current status
}

// New creates the metrics and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housewatch",
				Name:      "polls_total",
				Help:      "Status queries sent, by result",
			},
			[]string{"pipeline", "result"},
		),

		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housewatch",
				Name:      "reconnects_total",
				Help:      "Reconnects to a status service after a lost connection",
			},
			[]string{"pipeline"},
		),

		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housewatch",
				Name:      "lines_total",
				Help:      "Lines read from a stream source, by classification",
			},
			[]string{"pipeline", "kind"},
		),

		DecodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housewatch",
				Name:      "decode_failures_total",
				Help:      "Structured lines that could not be decoded",
			},
			[]string{"pipeline"},
		),

		Alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housewatch",
				Name:      "alerts_total",
				Help:      "Alerts handed to the webhook, by outcome",
			},
			[]string{"pipeline", "kind", "outcome"},
		),

		UPSStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "housewatch",
				Name:      "ups_status",
				Help:      "Last reported UPS status (1 = current)",
			},
			[]string{"ups", "status"},
		),
	}

	m.registry.MustRegister(
		m.Polls,
		m.Reconnects,
		m.Lines,
		m.DecodeFailures,
		m.Alerts,
		m.UPSStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetUPSStatus marks status as the only current status of ups
func (m *Metrics) SetUPSStatus(ups, status string) {
	m.UPSStatus.DeletePartialMatch(prometheus.Labels{"ups": ups})
	m.UPSStatus.WithLabelValues(ups, status).Set(1)
}
