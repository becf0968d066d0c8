package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "shatb"

// Outcome labels for the runs counter.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)

// Collector holds the testbench's Prometheus metrics.
type Collector struct {
	Runs     *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Latency  prometheus.Histogram
	gatherer prometheus.Gatherer
}

// New registers the testbench metrics on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Testbench runs by outcome.",
		}, []string{"outcome"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed runs by kind.",
		}, []string{"kind"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_latency_cycles",
			Help:      "Clock cycles between block submission and hash_valid.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 8),
		}),
		gatherer: reg,
	}
	reg.MustRegister(c.Runs, c.Failures, c.Latency)
	return c
}

// Observe records one run. kind is empty for a passing run; cycles is
// only recorded when the engine answered.
func (c *Collector) Observe(kind string, cycles uint64, answered bool) {
	if kind == "" {
		c.Runs.WithLabelValues(OutcomePass).Inc()
	} else {
		c.Runs.WithLabelValues(OutcomeFail).Inc()
		c.Failures.WithLabelValues(kind).Inc()
	}
	if answered {
		c.Latency.Observe(float64(cycles))
	}
}

// Gatherer exposes the underlying registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// WriteText writes all metrics in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
