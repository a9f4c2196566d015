package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the runtime's prometheus collectors
type Metrics struct {
	invocations     *prometheus.CounterVec
	duration        prometheus.Histogram
	accountsCreated prometheus.Counter
	votes           *prometheus.CounterVec
}

// NewMetrics creates the runtime collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ballot",
			Name:      "invocations_total",
			Help:      "Transactions processed by the runtime, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ballot",
			Name:      "invocation_duration_seconds",
			Help:      "Time taken to authorize, execute and persist a transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ballot",
			Name:      "accounts_created_total",
			Help:      "Accounts allocated by the runtime.",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ballot",
			Name:      "votes_total",
			Help:      "Instructions persisted by the runtime, by option.",
		}, []string{"option"}),
	}
	if reg != nil {
		reg.MustRegister(m.invocations, m.duration, m.accountsCreated, m.votes)
	}
	return m
}

// Invocations returns the counter for a given result label
func (m *Metrics) Invocations(result string) prometheus.Counter {
	return m.invocations.WithLabelValues(result)
}

func (m *Metrics) AccountsCreated() prometheus.Counter {
	return m.accountsCreated
}

// Votes returns the counter for a given option label
func (m *Metrics) Votes(option string) prometheus.Counter {
	return m.votes.WithLabelValues(option)
}
