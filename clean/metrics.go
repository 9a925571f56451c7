package clean

import (
	"github.com/influxdata/pepclean"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pepclean"

// Metrics counts what a Cleaner did to the files it processed.
type Metrics struct {
	Files        *prometheus.CounterVec
	ChecksFired  *prometheus.CounterVec
	BytesRemoved prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg, if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Number of files processed, by outcome.",
		}, []string{"status"}),
		ChecksFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_fired_total",
			Help:      "Number of times a check detected an issue.",
		}, []string{"check"}),
		BytesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_removed_total",
			Help:      "Net number of bytes removed from fixed files.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Files, m.ChecksFired, m.BytesRemoved)
	}
	return m
}

func (m *Metrics) observe(r pepclean.Result) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(r.Status.String()).Inc()
	for _, name := range r.Fixed {
		m.ChecksFired.WithLabelValues(name).Inc()
	}
	if r.Status == pepclean.StatusFixed && r.SizeBefore > r.SizeAfter {
		m.BytesRemoved.Add(float64(r.SizeBefore - r.SizeAfter))
	}
}
