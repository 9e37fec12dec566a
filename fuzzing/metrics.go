package fuzzing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeu5/qfuzz/oracle"
)

// Metrics of fuzzing runs. A nil *Metrics records nothing.
type Metrics struct {
	steps       prometheus.Counter
	outcomes    *prometheus.CounterVec
	completions prometheus.Counter
	aborts      prometheus.Counter
	states      prometheus.Gauge
	oracleTime  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qfuzz",
			Name:      "steps_total",
			Help:      "Number of oracle invocations.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qfuzz",
			Name:      "outcomes_total",
			Help:      "Oracle classifications by kind.",
		}, []string{"classification"}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qfuzz",
			Name:      "completions_total",
			Help:      "Accepted inputs.",
		}),
		aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qfuzz",
			Name:      "aborts_total",
			Help:      "Runs aborted by an oracle error.",
		}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qfuzz",
			Name:      "states",
			Help:      "Number of states in the state space.",
		}),
		oracleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qfuzz",
			Name:      "oracle_duration_seconds",
			Help:      "Duration of oracle invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	reg.MustRegister(m.steps, m.outcomes, m.completions, m.aborts, m.states, m.oracleTime)
	return m
}

func (m *Metrics) observeStep(out oracle.Outcome, states int) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.outcomes.WithLabelValues(out.Classification.String()).Inc()
	m.states.Set(float64(states))
	m.oracleTime.Observe(out.Duration.Seconds())
}

func (m *Metrics) observeComplete() {
	if m == nil {
		return
	}
	m.completions.Inc()
}

func (m *Metrics) observeAbort() {
	if m == nil {
		return
	}
	m.aborts.Inc()
}
