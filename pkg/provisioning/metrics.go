package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the provisioning Prometheus metrics
type Metrics struct {
	ProvisionsTotal   *prometheus.CounterVec
	ProvisionDuration *prometheus.HistogramVec
	ProvisionsActive  prometheus.Gauge
	MirrorFailures    prometheus.Counter
}

// NewMetrics creates and registers the provisioning metrics. A nil registerer
// leaves them unregistered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProvisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_provisions_total",
				Help: "Total number of Provision calls by path and result",
			},
			[]string{"path", "result"},
		),
		ProvisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "identity_provision_duration_seconds",
				Help:    "Provision call duration in seconds, lock wait included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		ProvisionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_provisions_in_flight",
				Help: "Number of Provision calls holding or waiting for a tenant lock",
			},
		),
		MirrorFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_mirror_write_failures_total",
				Help: "Permittable group writes that reached the primary store but not the mirror",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ProvisionsTotal,
			m.ProvisionDuration,
			m.ProvisionsActive,
			m.MirrorFailures,
		)
	}

	return m
}

func (m *Metrics) observe(path string, err error, started time.Time) {
	result := "success"
	if err != nil {
		result = "failure"
		if kind, ok := KindOf(err); ok {
			result = kind.String()
			if kind == MirrorWriteFailed {
				m.MirrorFailures.Inc()
			}
		}
	}
	m.ProvisionsTotal.WithLabelValues(path, result).Inc()
	m.ProvisionDuration.WithLabelValues(path).Observe(time.Since(started).Seconds())
}
