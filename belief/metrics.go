package belief

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "gridplan"
	beliefSubsystem  = "belief"
)

// MetricsObserver exports rejection sampling counters to prometheus.
// One observer can be shared by all the beliefs of an experiment.
type MetricsObserver struct {
	attempts       prometheus.Counter
	accepted       prometheus.Counter
	updates        prometheus.Counter
	acceptanceRate prometheus.Histogram
}

var _ Observer = &MetricsObserver{}

func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: beliefSubsystem,
			Name:      "attempts_total",
			Help:      "Total number of simulated samples during belief updates",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: beliefSubsystem,
			Name:      "accepted_total",
			Help:      "Total number of samples accepted as particles",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: beliefSubsystem,
			Name:      "updates_total",
			Help:      "Total number of belief updates",
		}),
		acceptanceRate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: beliefSubsystem,
			Name:      "acceptance_rate",
			Help:      "Fraction of accepted samples per belief update",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.accepted, m.updates, m.acceptanceRate} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsObserver) Begin(int) {}

func (m *MetricsObserver) Trial(accepted bool) {
	m.attempts.Inc()
	if accepted {
		m.accepted.Inc()
	}
}

func (m *MetricsObserver) End(stats Stats) {
	m.updates.Inc()
	m.acceptanceRate.Observe(stats.AcceptanceRate())
}
