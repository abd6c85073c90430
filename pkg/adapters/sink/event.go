package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// EventSink publishes every signal it receives to ports.TopicSignals
type EventSink struct {
	bus    ports.EventBus
	logger *zap.Logger
}

// NewEventSink creates a sink publishing to bus
func NewEventSink(bus ports.EventBus, logger *zap.Logger) (*EventSink, error) {
	if bus == nil {
		return nil, errors.New("event bus is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{bus: bus, logger: logger}, nil
}

// EmitMetric publishes a metric signal
func (s *EventSink) EmitMetric(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return s.publish(ctx, domain.SignalTypeMetric, name, value, tenant, "", ts)
}

// EmitOutcome publishes an outcome signal
func (s *EventSink) EmitOutcome(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return s.publish(ctx, domain.SignalTypeOutcome, name, value, tenant, "", ts)
}

// EmitAdvisor publishes an advisor signal addressed to consumer
func (s *EventSink) EmitAdvisor(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, consumer string, ts time.Time) (bool, error) {
	return s.publish(ctx, domain.SignalTypeAdvisor, name, value, tenant, consumer, ts)
}

func (s *EventSink) publish(
	ctx context.Context,
	signalType domain.SignalType,
	name string,
	value map[string]interface{},
	tenant domain.TenantContext,
	consumer string,
	ts time.Time,
) (bool, error) {
	data := map[string]interface{}{
		"signal_type": string(signalType),
		"value":       value,
		"tenant":      tenant.Map(),
	}
	if consumer != "" {
		data["consumer"] = consumer
	}
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeSignalEmitted,
		Timestamp: ts,
		Subject:   name,
		Data:      data,
	}
	if err := s.bus.Publish(ctx, ports.TopicSignals, event); err != nil {
		return false, fmt.Errorf("failed to publish signal %s: %w", name, err)
	}
	s.logger.Debug("signal published",
		zap.String("signal", name),
		zap.String("signal_type", string(signalType)),
		zap.String("event_id", event.ID))
	return true, nil
}
