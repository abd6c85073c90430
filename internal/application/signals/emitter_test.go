package signals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/domain"
)

type sinkCall struct {
	kind     domain.SignalType
	name     string
	value    map[string]interface{}
	tenant   domain.TenantContext
	consumer string
	ts       time.Time
}

type fakeSink struct {
	mu     sync.Mutex
	calls  []sinkCall
	fail   map[string]error
	refuse map[string]bool
	panics map[string]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{fail: map[string]error{}, refuse: map[string]bool{}, panics: map[string]bool{}}
}

func (s *fakeSink) record(c sinkCall) (bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	if s.panics[c.name] {
		panic("sink exploded")
	}
	if err := s.fail[c.name]; err != nil {
		return false, err
	}
	return !s.refuse[c.name], nil
}

func (s *fakeSink) EmitMetric(_ context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return s.record(sinkCall{kind: domain.SignalTypeMetric, name: name, value: value, tenant: tenant, ts: ts})
}

func (s *fakeSink) EmitOutcome(_ context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return s.record(sinkCall{kind: domain.SignalTypeOutcome, name: name, value: value, tenant: tenant, ts: ts})
}

func (s *fakeSink) EmitAdvisor(_ context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, consumer string, ts time.Time) (bool, error) {
	return s.record(sinkCall{kind: domain.SignalTypeAdvisor, name: name, value: value, tenant: tenant, consumer: consumer, ts: ts})
}

func (s *fakeSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.name
	}
	return out
}

var testTenant = domain.TenantContext{OrganizationID: "org-a", WorkspaceID: "ws-1", UserID: "user-7"}

func newTestEmitter(t *testing.T, sink *fakeSink) *Emitter {
	t.Helper()
	r := newTestRegistry(t, profilerFS())
	require.Empty(t, r.Load(context.Background()))
	clock := func() time.Time { return time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600)) }
	return NewEmitter(r, sink, nil, nil, WithEmitterClock(clock))
}

func TestEmitMetricBuildsPayload(t *testing.T) {
	sink := newFakeSink()
	e := newTestEmitter(t, sink)
	intentID := uuid.New()

	res := e.EmitMetric(context.Background(), "metric_profile_rows", intentID, testTenant, map[string]interface{}{
		"rows":   float64(120),
		"domain": "spoofed",
	})
	require.True(t, res.Success)
	assert.Equal(t, domain.SignalTypeMetric, res.SignalType)
	assert.NotEqual(t, uuid.Nil, res.EmissionID)
	assert.Equal(t, time.UTC, res.Timestamp.Location())
	assert.Empty(t, res.Error)

	require.Len(t, sink.calls, 1)
	call := sink.calls[0]
	assert.Equal(t, testTenant, call.tenant)
	assert.Equal(t, res.Timestamp, call.ts)
	assert.Equal(t, map[string]interface{}{
		"rows":      float64(120),
		"intent_id": intentID.String(),
		"domain":    "spoofed",
	}, call.value)
}

func TestEmitPayloadStampsIntentAndDomain(t *testing.T) {
	sink := newFakeSink()
	e := newTestEmitter(t, sink)
	intentID := uuid.New()

	res := e.EmitOutcome(context.Background(), "outcome_profile_quality", intentID, testTenant, nil)
	require.True(t, res.Success)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, map[string]interface{}{
		"intent_id": intentID.String(),
		"domain":    domain.DefaultDomain,
	}, sink.calls[0].value)
}

func TestEmitUnknownOrMistypedSignal(t *testing.T) {
	sink := newFakeSink()
	e := newTestEmitter(t, sink)

	tests := []struct {
		name string
		emit func() domain.EmissionResult
	}{
		{"unknown metric", func() domain.EmissionResult {
			return e.EmitMetric(context.Background(), "NoSuchSignal", uuid.New(), testTenant, nil)
		}},
		{"outcome emitted as metric", func() domain.EmissionResult {
			return e.EmitMetric(context.Background(), "outcome_profile_quality", uuid.New(), testTenant, nil)
		}},
		{"metric emitted as advisor", func() domain.EmissionResult {
			return e.EmitAdvisor(context.Background(), "metric_profile_rows", uuid.New(), testTenant, nil, "scheduler")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.emit()
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "unknown")
		})
	}

	assert.Empty(t, sink.calls, "the sink must never be called for unknown signals")
	assert.Equal(t, 3, e.EmissionCount(), "every call is recorded")
}

func TestEmitSinkFailuresAreIsolated(t *testing.T) {
	sink := newFakeSink()
	sink.fail["metric_profile_rows"] = errors.New("spine unavailable")
	sink.refuse["outcome_profile_quality"] = true
	sink.panics["advisor_anonymous"] = true
	e := newTestEmitter(t, sink)

	results := e.EmitForExecutionUnit(context.Background(), "DataProfiler", uuid.New(), testTenant, nil, true)
	require.Len(t, results, 3)

	byName := make(map[string]domain.EmissionResult)
	for _, r := range results {
		byName[r.SignalName] = r
	}
	assert.Equal(t, "spine unavailable", byName["metric_profile_rows"].Error)
	assert.Equal(t, ErrSinkRejected.Error(), byName["outcome_profile_quality"].Error)
	assert.Contains(t, byName["advisor_anonymous"].Error, "sink exploded")
	for _, r := range results {
		assert.False(t, r.Success, r.SignalName)
	}

	stats := e.EmissionStats()
	assert.Equal(t, EmissionStats{Total: 3, Failed: 3, Metrics: 1, Outcomes: 1, Advisors: 1}, stats)
}

func TestEmitForExecutionUnitConditions(t *testing.T) {
	tests := []struct {
		name    string
		success bool
		want    []string
	}{
		{
			name:    "success",
			success: true,
			want:    []string{"metric_profile_rows", "outcome_profile_quality", "advisor_anonymous"},
		},
		{
			name:    "failure",
			success: false,
			want:    []string{"metric_profile_rows", "metric_profile_errors", "advisor_profile_retry", "advisor_anonymous"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newFakeSink()
			e := newTestEmitter(t, sink)

			results := e.EmitForExecutionUnit(context.Background(), "DataProfiler", uuid.New(), testTenant,
				map[string]interface{}{"row_count": float64(10)}, tt.success)

			names := make([]string, len(results))
			for i, r := range results {
				names[i] = r.SignalName
				assert.True(t, r.Success, r.SignalName)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, tt.want, sink.names())
			assert.Equal(t, len(tt.want), e.EmissionCount())
		})
	}
}

func TestEmitForExecutionUnitAdvisorConsumer(t *testing.T) {
	sink := newFakeSink()
	e := newTestEmitter(t, sink)

	e.EmitForExecutionUnit(context.Background(), "DataProfiler", uuid.New(), testTenant, nil, false)

	consumers := make(map[string]string)
	for _, c := range sink.calls {
		if c.kind == domain.SignalTypeAdvisor {
			consumers[c.name] = c.consumer
		}
	}
	assert.Equal(t, map[string]string{
		"advisor_profile_retry": "scheduler",
		"advisor_anonymous":     "unknown",
	}, consumers)
}

func TestEmitForUnitWithoutSignals(t *testing.T) {
	sink := newFakeSink()
	e := newTestEmitter(t, sink)

	results := e.EmitForExecutionUnit(context.Background(), "BranchCreator", uuid.New(), testTenant, nil, true)
	assert.Empty(t, results)
	assert.Equal(t, 0, e.EmissionCount())
}

func TestEmitWithoutSink(t *testing.T) {
	r := newTestRegistry(t, profilerFS())
	r.Load(context.Background())
	e := NewEmitter(r, nil, nil, nil)

	res := e.EmitOutcome(context.Background(), "outcome_profile_quality", uuid.New(), testTenant, nil)
	assert.True(t, res.Success)
}

func TestAuditLogAccessors(t *testing.T) {
	sink := newFakeSink()
	sink.fail["metric_writer_only"] = errors.New("down")
	e := newTestEmitter(t, sink)

	e.EmitForExecutionUnit(context.Background(), "DataWriter", uuid.New(), testTenant, nil, true)
	e.EmitMetric(context.Background(), "NoSuchSignal", uuid.New(), testTenant, nil)

	emissions := e.Emissions()
	require.Len(t, emissions, 3)
	assert.Equal(t, EmissionStats{Total: 3, Successful: 1, Failed: 2, Metrics: 3}, e.EmissionStats())

	emissions[0].SignalName = "mutated"
	assert.Equal(t, "metric_profile_rows", e.Emissions()[0].SignalName)

	e.ClearEmissions()
	assert.Equal(t, 0, e.EmissionCount())
	assert.Equal(t, EmissionStats{}, e.EmissionStats())
}

func TestEmitConcurrentRecording(t *testing.T) {
	e := newTestEmitter(t, newFakeSink())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.EmitForExecutionUnit(context.Background(), "DataWriter", uuid.New(), testTenant, nil, true)
		}()
	}
	wg.Wait()
	assert.Equal(t, 40, e.EmissionCount())
}

func TestNewEmitterPanicsWithoutLookup(t *testing.T) {
	assert.Panics(t, func() { NewEmitter(nil, newFakeSink(), nil, nil) })
}
