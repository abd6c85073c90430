package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aescanero/datafabric/pkg/domain"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	sourcesSkipped          *prometheus.CounterVec
	capabilityRegistrations *prometheus.CounterVec
	capabilityRemovals      *prometheus.CounterVec
	registeredCapabilities  prometheus.Gauge
	decompositions          *prometheus.CounterVec
	emissions               *prometheus.CounterVec
	emissionDuration        *prometheus.HistogramVec
	workerPoolIdle          prometheus.Gauge
	workerPoolBusy          prometheus.Gauge
	workerPoolStopped       prometheus.Gauge
}

// NewCollector creates a Prometheus metrics collector registered with reg.
// A nil reg registers with the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		sourcesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_sources_skipped_total",
				Help: "Total number of declarative sources skipped while loading",
			},
			[]string{"kind"},
		),
		capabilityRegistrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_capability_registrations_total",
				Help: "Total number of capability registration attempts",
			},
			[]string{"status"},
		),
		capabilityRemovals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_capability_unregistrations_total",
				Help: "Total number of capability unregistration attempts",
			},
			[]string{"status"},
		),
		registeredCapabilities: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datafabric_registered_capabilities",
				Help: "Number of capabilities currently registered by this instance",
			},
		),
		decompositions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_intent_decompositions_total",
				Help: "Total number of intent decompositions",
			},
			[]string{"intent_type", "status"},
		),
		emissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafabric_signal_emissions_total",
				Help: "Total number of feedback signal emission attempts",
			},
			[]string{"signal_type", "status"},
		),
		emissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datafabric_signal_emission_duration_seconds",
				Help:    "Time spent handing a signal to the observability sink",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"signal_type"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datafabric_worker_pool_idle",
				Help: "Number of idle completion workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datafabric_worker_pool_busy",
				Help: "Number of busy completion workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datafabric_worker_pool_stopped",
				Help: "Number of stopped completion workers",
			},
		),
	}
}

// RecordSourceSkipped counts a declarative source rejected during loading
func (c *Collector) RecordSourceSkipped(kind string) {
	c.sourcesSkipped.WithLabelValues(kind).Inc()
}

// RecordCapabilityRegistration counts a registration attempt
func (c *Collector) RecordCapabilityRegistration(status string) {
	c.capabilityRegistrations.WithLabelValues(status).Inc()
}

// RecordCapabilityUnregistration counts an unregistration attempt
func (c *Collector) RecordCapabilityUnregistration(status string) {
	c.capabilityRemovals.WithLabelValues(status).Inc()
}

// SetRegisteredCapabilities sets the registered capability gauge
func (c *Collector) SetRegisteredCapabilities(count int) {
	c.registeredCapabilities.Set(float64(count))
}

// RecordDecomposition counts an intent decomposition
func (c *Collector) RecordDecomposition(intentType, status string) {
	c.decompositions.WithLabelValues(intentType, status).Inc()
}

// RecordEmission counts a signal emission and observes its duration
func (c *Collector) RecordEmission(signalType domain.SignalType, status string, duration time.Duration) {
	c.emissions.WithLabelValues(string(signalType), status).Inc()
	c.emissionDuration.WithLabelValues(string(signalType)).Observe(duration.Seconds())
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
