package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBillingMetrics(registry).(*billingMetrics)

	m.IncPromoRedemption("extended_trial", "applied")
	m.IncPromoRedemption("extended_trial", "applied")
	m.IncSagaOutcome("comp_month", SagaOutcomeReverted)
	m.IncSuspension("suspend", "fraud")
	m.ObserveTimeline(120*time.Millisecond, 40)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.promoRedemptions.WithLabelValues("extended_trial", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagaOutcomes.WithLabelValues("comp_month", SagaOutcomeReverted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suspensions.WithLabelValues("suspend", "fraud")))

	count, err := testutil.GatherAndCount(registry, "backoffice_timeline_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	registry := NewRegistry()
	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}
