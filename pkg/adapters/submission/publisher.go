package submission

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

// EventPublisher implements ports.IntentSubmitter and ports.Scheduler on an
// event bus. A publish error is reported as a refusal with that error.
type EventPublisher struct {
	bus    ports.EventBus
	logger *zap.Logger
	now    func() time.Time
}

// NewEventPublisher creates a publisher on bus
func NewEventPublisher(bus ports.EventBus, logger *zap.Logger) (*EventPublisher, error) {
	if bus == nil {
		return nil, errors.New("event bus is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{bus: bus, logger: logger, now: time.Now}, nil
}

// DecomposeIntent publishes the unit list of an intent to ports.TopicIntents
func (p *EventPublisher) DecomposeIntent(ctx context.Context, intentID uuid.UUID, units []domain.UnitSpec) (bool, error) {
	return p.publish(ctx, ports.TopicIntents, ports.EventTypeIntentDecomposed, intentID.String(), map[string]interface{}{
		"intent_id":       intentID.String(),
		"execution_units": units,
		"unit_count":      len(units),
	})
}

// ProvideCapability publishes the scheduling profile of one unit to ports.TopicCapabilities
func (p *EventPublisher) ProvideCapability(ctx context.Context, unitName string, profile domain.SchedulingProfile) (bool, error) {
	return p.publish(ctx, ports.TopicCapabilities, ports.EventTypeCapabilityOffered, unitName, map[string]interface{}{
		"unit":    unitName,
		"profile": profile,
	})
}

// ProvideLocalitySignals publishes the locality signals of an intent to ports.TopicCapabilities
func (p *EventPublisher) ProvideLocalitySignals(ctx context.Context, intentID uuid.UUID, signals []domain.LocalitySignal) (bool, error) {
	return p.publish(ctx, ports.TopicCapabilities, ports.EventTypeLocalityProvided, intentID.String(), map[string]interface{}{
		"intent_id": intentID.String(),
		"signals":   signals,
	})
}

func (p *EventPublisher) publish(ctx context.Context, topic string, eventType ports.EventType, subject string, data map[string]interface{}) (bool, error) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Subject:   subject,
		Data:      data,
	}
	if err := p.bus.Publish(ctx, topic, event); err != nil {
		return false, fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", string(eventType)),
		zap.String("subject", subject))
	return true, nil
}
