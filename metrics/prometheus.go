package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

var labelNames = []string{"stage", "chain", "outcome"}

// NewPrometheusRecorder registers the wallet hopper collectors on reg.
// A nil registerer uses the default one.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallethopper",
			Name:      "events_total",
			Help:      "wallet hopper event counters",
		},
		append([]string{"type"}, labelNames...),
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wallethopper",
			Name:      "latency_seconds",
			Help:      "wallet hopper operation latency",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 3, 10, 30, 60, 180, 600},
		},
		append([]string{"operation"}, labelNames...),
	)

	if err := reg.Register(counters); err != nil {
		return nil, err
	}
	if err := reg.Register(histogram); err != nil {
		reg.Unregister(counters)
		return nil, err
	}

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}, nil
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"stage":   labels["stage"],
		"chain":   labels["chain"],
		"outcome": labels["outcome"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"stage":     labels["stage"],
		"chain":     labels["chain"],
		"outcome":   labels["outcome"],
	}).Observe(d.Seconds())
}
