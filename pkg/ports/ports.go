// Package ports declares the collaborator interfaces the core depends on.
//
// Each external dependency gets exactly one named interface, injected at
// construction. Every method that crosses into a collaborator takes a
// context.Context: those calls may block or be delayed arbitrarily and are
// the only suspension points of the core.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/google/uuid"
)

// Document is one declarative source as enumerated from storage.
// Err is set when the source could not be read or decoded; Body is nil then.
type Document struct {
	Origin string
	Body   map[string]interface{}
	Err    error
}

// SourceEnumerator lists declarative sources. The physical format is an adapter detail.
type SourceEnumerator interface {
	Enumerate(ctx context.Context) ([]Document, error)
}

// AssetRegistry is the control plane registry that makes capabilities discoverable
type AssetRegistry interface {
	// RegisterCapability registers a card and returns the registry's id for it
	RegisterCapability(ctx context.Context, reg domain.CapabilityRegistration) (string, error)

	// UnregisterCapability removes a registration; false means the registry refused
	UnregisterCapability(ctx context.Context, id string) (bool, error)

	// ListByDomain returns the registrations owned by a domain
	ListByDomain(ctx context.Context, domainName string) ([]domain.RegisteredCapability, error)
}

// ObservabilitySink receives emitted feedback signals
type ObservabilitySink interface {
	EmitMetric(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error)
	EmitOutcome(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error)
	EmitAdvisor(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, consumer string, ts time.Time) (bool, error)
}

// IntentSubmitter is notified of every computed decomposition
type IntentSubmitter interface {
	DecomposeIntent(ctx context.Context, intentID uuid.UUID, units []domain.UnitSpec) (bool, error)
}

// Scheduler receives capability scheduling hints and locality signals
type Scheduler interface {
	ProvideCapability(ctx context.Context, unitName string, profile domain.SchedulingProfile) (bool, error)
	ProvideLocalitySignals(ctx context.Context, intentID uuid.UUID, signals []domain.LocalitySignal) (bool, error)
}

// EventType identifies the kind of an Event
type EventType string

const (
	EventTypeUnitCompleted     EventType = "unit.completed"
	EventTypeSignalEmitted     EventType = "signal.emitted"
	EventTypeIntentDecomposed  EventType = "intent.decomposed"
	EventTypeCapabilityOffered EventType = "capability.offered"
	EventTypeLocalityProvided  EventType = "locality.provided"
)

// Topics used on the event bus
const (
	TopicCompletions  = "unit.events"
	TopicSignals      = "signal.events"
	TopicIntents      = "intent.events"
	TopicCapabilities = "capability.events"
)

// Event is the envelope carried by the event bus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler processes one event delivered by the bus
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and delivers events by topic
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// MetricsCollector records the core's own operational metrics
type MetricsCollector interface {
	RecordSourceSkipped(kind string)
	RecordCapabilityRegistration(status string)
	RecordCapabilityUnregistration(status string)
	SetRegisteredCapabilities(count int)
	RecordDecomposition(intentType, status string)
	RecordEmission(signalType domain.SignalType, status string, duration time.Duration)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
