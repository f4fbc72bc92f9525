package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics метрики операций бэк-офиса
type BillingMetrics interface {
	IncPromoRedemption(promoType, outcome string)
	IncSagaOutcome(saga, outcome string)
	IncSuspension(action, reasonCode string)
	ObserveTimeline(duration time.Duration, events int)
}

// Исходы саг
const (
	SagaOutcomeSynced    = "synced"
	SagaOutcomeReverted  = "reverted"
	SagaOutcomeAmbiguous = "ambiguous"
	SagaOutcomeFailed    = "failed"
)

type billingMetrics struct {
	promoRedemptions *prometheus.CounterVec
	sagaOutcomes     *prometheus.CounterVec
	suspensions      *prometheus.CounterVec
	timelineLatency  prometheus.Histogram
	timelineEvents   prometheus.Histogram
}

// NewRegistry создает реестр с метриками рантайма и процесса
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewBillingMetrics регистрирует метрики в registry
func NewBillingMetrics(registry prometheus.Registerer) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		promoRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_promo_redemptions_total",
				Help: "Promo code applications by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		sagaOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_saga_outcomes_total",
				Help: "Billing provider saga outcomes",
			},
			[]string{"saga", "outcome"},
		),
		suspensions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_account_state_changes_total",
				Help: "Suspend and re-enable transitions",
			},
			[]string{"action", "reason_code"},
		),
		timelineLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backoffice_timeline_duration_seconds",
				Help:    "Timeline aggregation latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		timelineEvents: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backoffice_timeline_events",
				Help:    "Merged events per timeline request before pagination",
				Buckets: prometheus.LinearBuckets(0, 75, 7), // 0..450
			},
		),
	}
}

func (m *billingMetrics) IncPromoRedemption(promoType, outcome string) {
	m.promoRedemptions.WithLabelValues(promoType, outcome).Inc()
}

func (m *billingMetrics) IncSagaOutcome(saga, outcome string) {
	m.sagaOutcomes.WithLabelValues(saga, outcome).Inc()
}

func (m *billingMetrics) IncSuspension(action, reasonCode string) {
	m.suspensions.WithLabelValues(action, reasonCode).Inc()
}

func (m *billingMetrics) ObserveTimeline(duration time.Duration, events int) {
	m.timelineLatency.Observe(duration.Seconds())
	m.timelineEvents.Observe(float64(events))
}

// NewNop метрики в отдельном реестре, для тестов
func NewNop() BillingMetrics {
	return NewBillingMetrics(prometheus.NewRegistry())
}
