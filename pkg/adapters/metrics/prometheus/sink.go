package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aescanero/datafabric/pkg/domain"
)

// Sink implements ports.ObservabilitySink by counting received signals.
// Only registered signal identities become labels; tenant and payload values
// are client supplied and are never exported.
type Sink struct {
	signals        *prometheus.CounterVec
	advisories     *prometheus.CounterVec
	lastEmissionTS *prometheus.GaugeVec
}

// NewSink creates a counting sink registered with reg.
// A nil reg registers with the default registry.
func NewSink(reg prometheus.Registerer) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Sink{
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_signals_received_total",
				Help: "Total number of feedback signals received by the sink",
			},
			[]string{"signal", "signal_type"},
		),
		advisories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_advisories_routed_total",
				Help: "Total number of advisor signals routed to a consumer",
			},
			[]string{"signal", "consumer"},
		),
		lastEmissionTS: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datafabric_signal_last_emission_timestamp_seconds",
				Help: "Unix time of the last emission of a signal",
			},
			[]string{"signal"},
		),
	}
}

// EmitMetric counts a metric signal
func (s *Sink) EmitMetric(_ context.Context, name string, _ map[string]interface{}, _ domain.TenantContext, ts time.Time) (bool, error) {
	s.observe(domain.SignalTypeMetric, name, ts)
	return true, nil
}

// EmitOutcome counts an outcome signal
func (s *Sink) EmitOutcome(_ context.Context, name string, _ map[string]interface{}, _ domain.TenantContext, ts time.Time) (bool, error) {
	s.observe(domain.SignalTypeOutcome, name, ts)
	return true, nil
}

// EmitAdvisor counts an advisor signal and the consumer it is addressed to
func (s *Sink) EmitAdvisor(_ context.Context, name string, _ map[string]interface{}, _ domain.TenantContext, consumer string, ts time.Time) (bool, error) {
	s.observe(domain.SignalTypeAdvisor, name, ts)
	s.advisories.WithLabelValues(name, consumer).Inc()
	return true, nil
}

func (s *Sink) observe(signalType domain.SignalType, name string, ts time.Time) {
	s.signals.WithLabelValues(name, string(signalType)).Inc()
	s.lastEmissionTS.WithLabelValues(name).Set(float64(ts.Unix()))
}
