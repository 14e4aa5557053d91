package glosas

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments loads and integrity checks of the engine.
type Metrics struct {
	loadDuration *prometheus.HistogramVec
	loadedRows   prometheus.Counter
	violations   prometheus.Counter
}

// NewMetrics registers the engine collectors. A nil registerer uses the
// Prometheus default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glosas_load_duration_seconds",
			Help:    "Duration of data source loads by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		loadedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glosas_loaded_items_total",
			Help: "Line items returned by the loader after status filtering.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glosas_integrity_violations_total",
			Help: "Classifications whose category counts did not add up to the invoice total.",
		}),
	}
	registerer.MustRegister(m.loadDuration, m.loadedRows, m.violations)
	return m
}

func (m *Metrics) observeLoad(start time.Time, rows int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.loadDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err == nil {
		m.loadedRows.Add(float64(rows))
	}
}

func (m *Metrics) integrityViolation() {
	if m == nil {
		return
	}
	m.violations.Inc()
}
