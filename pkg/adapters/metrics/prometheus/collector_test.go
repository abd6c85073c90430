package prometheus

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

var (
	_ ports.MetricsCollector  = (*Collector)(nil)
	_ ports.ObservabilitySink = (*Sink)(nil)
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSourceSkipped("capability")
	c.RecordCapabilityRegistration("success")
	c.RecordCapabilityRegistration("success")
	c.RecordCapabilityRegistration("failed")
	c.RecordCapabilityUnregistration("success")
	c.SetRegisteredCapabilities(21)
	c.RecordDecomposition("IngestData", "success")
	c.RecordDecomposition("unsupported", "failed")
	c.RecordEmission(domain.SignalTypeMetric, "success", 2*time.Millisecond)
	c.RecordWorkerPoolStatus(3, 1, 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.capabilityRegistrations.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.capabilityRegistrations.WithLabelValues("failed")))
	assert.Equal(t, float64(21), testutil.ToFloat64(c.registeredCapabilities))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.decompositions.WithLabelValues("IngestData", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.emissions.WithLabelValues("metric", "success")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.workerPoolIdle))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.workerPoolBusy))

	count, err := testutil.GatherAndCount(reg, "datafabric_signal_emission_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectorsUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}

func TestSinkCountsSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSink(reg)
	ctx := context.Background()
	tenant := domain.TenantContext{OrganizationID: "org-a", WorkspaceID: "ws-1"}
	ts := time.Unix(1767225600, 0)

	ok, err := s.EmitMetric(ctx, "metric_data_ingestion_volume", map[string]interface{}{"rows": 10}, tenant, ts)
	require.NoError(t, err)
	assert.True(t, ok)
	_, _ = s.EmitOutcome(ctx, "outcome_connection_health", nil, tenant, ts)
	_, _ = s.EmitAdvisor(ctx, "advisor_data_freshness", nil, tenant, "scheduler", ts)
	_, _ = s.EmitMetric(ctx, "metric_data_ingestion_volume", nil, domain.TenantContext{OrganizationID: "org-b"}, ts)

	expected := `
# HELP datafabric_signals_received_total Total number of feedback signals received by the sink
# TYPE datafabric_signals_received_total counter
datafabric_signals_received_total{signal="advisor_data_freshness",signal_type="advisor"} 1
datafabric_signals_received_total{signal="metric_data_ingestion_volume",signal_type="metric"} 2
datafabric_signals_received_total{signal="outcome_connection_health",signal_type="outcome"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "datafabric_signals_received_total"))
	assert.Equal(t, 3, testutil.CollectAndCount(s.signals), "tenants must not add series")
	assert.Equal(t, float64(1), testutil.ToFloat64(s.advisories.WithLabelValues("advisor_data_freshness", "scheduler")))
	assert.Equal(t, float64(1767225600), testutil.ToFloat64(s.lastEmissionTS.WithLabelValues("outcome_connection_health")))
}
