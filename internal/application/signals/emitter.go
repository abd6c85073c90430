package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// ErrSinkRejected is recorded when the sink returns false without an error
var ErrSinkRejected = errors.New("observability sink rejected signal")

// Lookup is the part of the Registry the emitter reads
type Lookup interface {
	Get(name string) (domain.SignalDefinition, bool)
	GetForUnit(unit string) []domain.SignalDefinition
}

// EmissionStats summarises the audit log
type EmissionStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Metrics    int `json:"metrics"`
	Outcomes   int `json:"outcomes"`
	Advisors   int `json:"advisors"`
}

// Emitter forwards feedback signals to the observability sink and keeps an
// audit log with exactly one result per emission attempt
type Emitter struct {
	signals Lookup
	sink    ports.ObservabilitySink
	metrics ports.MetricsCollector
	logger  *zap.Logger
	domain  string
	now     func() time.Time

	mu        sync.RWMutex
	emissions []domain.EmissionResult
}

// EmitterOption configures an Emitter
type EmitterOption func(*Emitter)

// WithEmitterDomain sets the domain tag added to every payload
func WithEmitterDomain(name string) EmitterOption {
	return func(e *Emitter) {
		if name != "" {
			e.domain = name
		}
	}
}

// WithEmitterClock overrides the clock used for emission timestamps
func WithEmitterClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEmitter creates an emitter. A nil sink accepts every signal, which is
// how the data fabric runs without an observability backend.
func NewEmitter(signals Lookup, sink ports.ObservabilitySink, metrics ports.MetricsCollector, logger *zap.Logger, opts ...EmitterOption) *Emitter {
	if signals == nil {
		panic("signals: nil signal lookup")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emitter{
		signals: signals,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		domain:  domain.DefaultDomain,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmitMetric emits a metric signal
func (e *Emitter) EmitMetric(ctx context.Context, name string, intentID uuid.UUID, tenant domain.TenantContext, values map[string]interface{}) domain.EmissionResult {
	return e.emit(ctx, domain.SignalTypeMetric, name, intentID, tenant, values, "")
}

// EmitOutcome emits an outcome signal
func (e *Emitter) EmitOutcome(ctx context.Context, name string, intentID uuid.UUID, tenant domain.TenantContext, values map[string]interface{}) domain.EmissionResult {
	return e.emit(ctx, domain.SignalTypeOutcome, name, intentID, tenant, values, "")
}

// EmitAdvisor emits an advisor signal addressed to consumer
func (e *Emitter) EmitAdvisor(ctx context.Context, name string, intentID uuid.UUID, tenant domain.TenantContext, values map[string]interface{}, consumer string) domain.EmissionResult {
	return e.emit(ctx, domain.SignalTypeAdvisor, name, intentID, tenant, values, consumer)
}

// EmitForExecutionUnit emits every signal the unit triggers whose condition
// matches the completion. Non-qualifying signals produce no result.
func (e *Emitter) EmitForExecutionUnit(ctx context.Context, unit string, intentID uuid.UUID, tenant domain.TenantContext, result map[string]interface{}, success bool) []domain.EmissionResult {
	var results []domain.EmissionResult
	for _, def := range e.signals.GetForUnit(unit) {
		if !def.Trigger.Condition.Matches(success) {
			continue
		}
		switch def.SignalType {
		case domain.SignalTypeMetric:
			results = append(results, e.EmitMetric(ctx, def.Name, intentID, tenant, result))
		case domain.SignalTypeOutcome:
			results = append(results, e.EmitOutcome(ctx, def.Name, intentID, tenant, result))
		case domain.SignalTypeAdvisor:
			results = append(results, e.EmitAdvisor(ctx, def.Name, intentID, tenant, result, def.PrimaryConsumer()))
		}
	}

	e.logger.Debug("execution unit signals emitted",
		zap.String("unit", unit),
		zap.String("intent_id", intentID.String()),
		zap.Bool("unit_success", success),
		zap.Int("emissions", len(results)))
	return results
}

// Emissions returns a copy of the audit log in emission order
func (e *Emitter) Emissions() []domain.EmissionResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.EmissionResult, len(e.emissions))
	copy(out, e.emissions)
	return out
}

// EmissionCount returns the number of recorded emission attempts
func (e *Emitter) EmissionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.emissions)
}

// EmissionStats counts recorded emissions by outcome and type
func (e *Emitter) EmissionStats() EmissionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := EmissionStats{Total: len(e.emissions)}
	for _, r := range e.emissions {
		if r.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		switch r.SignalType {
		case domain.SignalTypeMetric:
			stats.Metrics++
		case domain.SignalTypeOutcome:
			stats.Outcomes++
		case domain.SignalTypeAdvisor:
			stats.Advisors++
		}
	}
	return stats
}

// ClearEmissions empties the audit log
func (e *Emitter) ClearEmissions() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emissions = nil
}

func (e *Emitter) emit(
	ctx context.Context,
	signalType domain.SignalType,
	name string,
	intentID uuid.UUID,
	tenant domain.TenantContext,
	values map[string]interface{},
	consumer string,
) domain.EmissionResult {
	start := time.Now()
	result := domain.EmissionResult{
		SignalName: name,
		SignalType: signalType,
		EmissionID: uuid.New(),
		Timestamp:  e.now().UTC(),
	}

	def, ok := e.signals.Get(name)
	if !ok || def.SignalType != signalType {
		result.Error = fmt.Sprintf("unknown %s: %s", signalType, name)
		return e.record(result, start)
	}

	if err := e.send(ctx, signalType, name, e.payload(intentID, values), tenant, consumer, result.Timestamp); err != nil {
		e.logger.Warn("signal emission failed",
			zap.String("signal", name),
			zap.String("signal_type", string(signalType)),
			zap.String("intent_id", intentID.String()),
			zap.Error(err))
		result.Error = err.Error()
		return e.record(result, start)
	}

	result.Success = true
	return e.record(result, start)
}

// send calls the sink operation matching signalType and converts any
// failure, panics included, into an error
func (e *Emitter) send(
	ctx context.Context,
	signalType domain.SignalType,
	name string,
	payload map[string]interface{},
	tenant domain.TenantContext,
	consumer string,
	ts time.Time,
) (err error) {
	if e.sink == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observability sink panicked: %v", r)
		}
	}()

	var accepted bool
	switch signalType {
	case domain.SignalTypeMetric:
		accepted, err = e.sink.EmitMetric(ctx, name, payload, tenant, ts)
	case domain.SignalTypeOutcome:
		accepted, err = e.sink.EmitOutcome(ctx, name, payload, tenant, ts)
	case domain.SignalTypeAdvisor:
		accepted, err = e.sink.EmitAdvisor(ctx, name, payload, tenant, consumer, ts)
	}
	if err != nil {
		return err
	}
	if !accepted {
		return ErrSinkRejected
	}
	return nil
}

// payload stamps the intent id and domain, then copies values over them, so
// a caller key of the same name wins
func (e *Emitter) payload(intentID uuid.UUID, values map[string]interface{}) map[string]interface{} {
	p := make(map[string]interface{}, len(values)+2)
	p["intent_id"] = intentID.String()
	p["domain"] = e.domain
	for k, v := range values {
		p[k] = v
	}
	return p
}

func (e *Emitter) record(result domain.EmissionResult, start time.Time) domain.EmissionResult {
	e.mu.Lock()
	e.emissions = append(e.emissions, result)
	e.mu.Unlock()

	status := "success"
	if !result.Success {
		status = "failed"
	}
	e.metrics.RecordEmission(result.SignalType, status, time.Since(start))
	return result
}
