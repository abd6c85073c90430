package signals

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/adapters/sources"
	"github.com/aescanero/datafabric/pkg/catalog"
	"github.com/aescanero/datafabric/pkg/domain"
)

func signalJSON(name, signalType, condition string, units ...string) string {
	unitList := "[]"
	if len(units) > 0 {
		unitList = "["
		for i, u := range units {
			if i > 0 {
				unitList += ", "
			}
			unitList += fmt.Sprintf("%q", u)
		}
		unitList += "]"
	}
	trigger := fmt.Sprintf(`{"execution_units": %s}`, unitList)
	if condition != "" {
		trigger = fmt.Sprintf(`{"condition": %q, "execution_units": %s}`, condition, unitList)
	}
	return fmt.Sprintf(`{
  "metadata": {"name": %q},
  "signal_type": %q,
  "description": "test signal",
  "emission_trigger": %s,
  "schema": {"type": "object"},
  "intended_consumers": []
}`, name, signalType, trigger)
}

// profilerFS declares a mix of signals around DataProfiler. File names fix the load order.
func profilerFS() fstest.MapFS {
	return fstest.MapFS{
		"01_outcome_profile_quality.json": {Data: []byte(signalJSON("outcome_profile_quality", "outcome", "on_success", "DataProfiler"))},
		"02_metric_profile_rows.json":     {Data: []byte(signalJSON("metric_profile_rows", "metric", "", "DataProfiler", "DataWriter"))},
		"03_advisor_profile_retry.yaml": {Data: []byte(`
metadata: {name: advisor_profile_retry, version: 2.0.0}
signal_type: advisor
emission_trigger: {condition: on_failure, execution_units: [DataProfiler]}
intended_consumers:
  - consumer: scheduler
    priority: high
  - consumer: dashboard
`)},
		"04_metric_profile_errors.json": {Data: []byte(signalJSON("metric_profile_errors", "metric", "on_failure", "DataProfiler"))},
		"05_advisor_anonymous.json":     {Data: []byte(signalJSON("advisor_anonymous", "advisor", "always", "DataProfiler"))},
		"06_metric_writer_only.json":    {Data: []byte(signalJSON("metric_writer_only", "metric", "always", "DataWriter"))},
	}
}

func newTestRegistry(t *testing.T, fsys fstest.MapFS, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(sources.NewFSEnumerator(fsys, ".", nil), nil, nil, opts...)
	return r
}

func TestLoadEmbeddedCatalogue(t *testing.T) {
	r := NewRegistry(sources.NewFSEnumerator(catalog.Signals(), ".", nil), nil, nil)
	warnings := r.Load(context.Background())
	require.Empty(t, warnings)

	assert.Equal(t, Counts{Metrics: 4, Outcomes: 3, Advisors: 3, Total: 10}, r.Counts())
	assert.Len(t, r.All(), 10)

	def, ok := r.Get("metric_data_ingestion_volume")
	require.True(t, ok)
	assert.Equal(t, domain.SignalTypeMetric, def.SignalType)
	assert.Equal(t, domain.TriggerOnSuccess, def.Trigger.Condition)
	assert.Equal(t, domain.DefaultDomain, def.Domain)
	assert.True(t, def.Trigger.Includes("DataReplicator"))

	forProfiler := r.GetForUnit("DataProfiler")
	require.Len(t, forProfiler, 2)
	assert.Equal(t, "outcome_data_quality_gate", forProfiler[0].Name)
	assert.Equal(t, "advisor_data_freshness", forProfiler[1].Name)
}

func TestLoadDefaultsAndConsumers(t *testing.T) {
	r := newTestRegistry(t, profilerFS(), WithDomain("fabric-eu"))
	require.Empty(t, r.Load(context.Background()))

	rows, ok := r.Get("metric_profile_rows")
	require.True(t, ok)
	assert.Equal(t, domain.TriggerAlways, rows.Trigger.Condition, "missing condition defaults to always")
	assert.Equal(t, domain.DefaultVersion, rows.Version)
	assert.Equal(t, "fabric-eu", rows.Domain)
	assert.Equal(t, "unknown", rows.PrimaryConsumer())

	retry, ok := r.Get("advisor_profile_retry")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", retry.Version)
	require.Len(t, retry.IntendedConsumers, 2)
	assert.Equal(t, "scheduler", retry.PrimaryConsumer())
	assert.Equal(t, "high", retry.IntendedConsumers[0].Attributes["priority"])
	assert.Equal(t, "03_advisor_profile_retry.yaml", retry.Origin)
}

func TestGetForUnitOrdersByTypeThenLoadOrder(t *testing.T) {
	r := newTestRegistry(t, profilerFS())
	r.Load(context.Background())

	var names []string
	for _, def := range r.GetForUnit("DataProfiler") {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{
		"metric_profile_rows",
		"metric_profile_errors",
		"outcome_profile_quality",
		"advisor_profile_retry",
		"advisor_anonymous",
	}, names)

	assert.Empty(t, r.GetForUnit("NoSuchUnit"))
	assert.Len(t, r.GetForUnit("DataWriter"), 2)
}

func TestGetByTypeAndCounts(t *testing.T) {
	r := newTestRegistry(t, profilerFS())
	r.Load(context.Background())

	assert.Equal(t, Counts{Metrics: 3, Outcomes: 1, Advisors: 2, Total: 6}, r.Counts())
	advisors := r.GetByType(domain.SignalTypeAdvisor)
	require.Len(t, advisors, 2)
	assert.Equal(t, "advisor_profile_retry", advisors[0].Name)
	assert.Empty(t, r.GetByType(domain.SignalType("gauge")))

	_, ok := r.Get("NoSuchSignal")
	assert.False(t, ok)
}

func TestLoadSkipsMalformedSources(t *testing.T) {
	fsys := profilerFS()
	fsys["bad_type.json"] = &fstest.MapFile{Data: []byte(signalJSON("bad_type", "gauge", "always", "DataProfiler"))}
	fsys["bad_condition.json"] = &fstest.MapFile{Data: []byte(signalJSON("bad_condition", "metric", "sometimes", "DataProfiler"))}
	fsys["no_name.json"] = &fstest.MapFile{Data: []byte(`{"metadata": {}, "signal_type": "metric"}`)}
	fsys["garbage.yaml"] = &fstest.MapFile{Data: []byte("metadata: [unclosed")}

	r := newTestRegistry(t, fsys)
	warnings := r.Load(context.Background())
	assert.Len(t, warnings, 4)
	assert.Equal(t, 6, r.Counts().Total)
}

func TestLoadDuplicatePolicy(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(signalJSON("shared", "metric", "always", "DataWriter"))},
		"b.json": {Data: []byte(signalJSON("shared", "outcome", "on_failure", "DataWriter"))},
	}

	t.Run("overwrite", func(t *testing.T) {
		r := newTestRegistry(t, fsys)
		warnings := r.Load(context.Background())
		require.Len(t, warnings, 1)

		def, ok := r.Get("shared")
		require.True(t, ok)
		assert.Equal(t, domain.SignalTypeOutcome, def.SignalType)
		assert.Equal(t, Counts{Outcomes: 1, Total: 1}, r.Counts())
	})

	t.Run("reject", func(t *testing.T) {
		r := newTestRegistry(t, fsys, WithDuplicatePolicy(domain.DuplicateReject))
		warnings := r.Load(context.Background())
		require.Len(t, warnings, 1)
		assert.Equal(t, "b.json", warnings[0].Origin)

		def, ok := r.Get("shared")
		require.True(t, ok)
		assert.Equal(t, domain.SignalTypeMetric, def.SignalType)
		assert.Equal(t, Counts{Metrics: 1, Total: 1}, r.Counts())
	})
}

func TestLoadReplacesPreviousContents(t *testing.T) {
	fsys := profilerFS()
	r := newTestRegistry(t, fsys)
	r.Load(context.Background())
	require.Equal(t, 6, r.Counts().Total)

	delete(fsys, "06_metric_writer_only.json")
	r.Load(context.Background())
	assert.Equal(t, 5, r.Counts().Total)
	_, ok := r.Get("metric_writer_only")
	assert.False(t, ok)
}
