package featurizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records featurization outcomes. A nil *Metrics records nothing.
type Metrics struct {
	featurized *prometheus.CounterVec
	duration   prometheus.Histogram
	seqLength  prometheus.Histogram
}

// NewMetrics creates the featurizer collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		featurized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemtok",
			Name:      "featurize_total",
			Help:      "Molecules featurized, by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chemtok",
			Name:      "featurize_duration_seconds",
			Help:      "Time to render and tokenize one molecule.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		seqLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chemtok",
			Name:      "sequence_length",
			Help:      "Token count of successful encodings.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 9),
		}),
	}
	for _, c := range []prometheus.Collector{m.featurized, m.duration, m.seqLength} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(d time.Duration, length int, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	if err != nil {
		m.featurized.WithLabelValues("error").Inc()
		return
	}
	m.featurized.WithLabelValues("ok").Inc()
	m.seqLength.Observe(float64(length))
}
