package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsReceived    *prometheus.CounterVec
	FanoutErrors      *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers against a specific registerer. Tests use a fresh
// registry to avoid duplicate-registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paywatch_events_received_total",
			Help: "The total number of webhook events received, by event type",
		}, []string{"type"}),
		FanoutErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paywatch_fanout_errors_total",
			Help: "The total number of failed downstream calls, by target",
		}, []string{"type"}), // 'recorder', 'notifier'
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "paywatch_duplicates_skipped_total",
			Help: "The total number of replayed events skipped by dedupe",
		}),
	}
}

func (m *Metrics) IncEventsReceived(eventType string) {
	m.EventsReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncFanoutErrors(target string) {
	m.FanoutErrors.WithLabelValues(target).Inc()
}

func (m *Metrics) IncDuplicatesSkipped() {
	m.DuplicatesSkipped.Inc()
}
