package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignalType categorizes a feedback signal
type SignalType string

const (
	SignalTypeMetric  SignalType = "metric"
	SignalTypeOutcome SignalType = "outcome"
	SignalTypeAdvisor SignalType = "advisor"
)

// Valid reports whether t is one of the three known signal types
func (t SignalType) Valid() bool {
	switch t {
	case SignalTypeMetric, SignalTypeOutcome, SignalTypeAdvisor:
		return true
	}
	return false
}

// TriggerCondition decides whether a signal fires for a completion event
type TriggerCondition string

const (
	TriggerAlways    TriggerCondition = "always"
	TriggerOnSuccess TriggerCondition = "on_success"
	TriggerOnFailure TriggerCondition = "on_failure"
)

// Matches reports whether a completion with the given outcome satisfies the condition
func (c TriggerCondition) Matches(success bool) bool {
	switch c {
	case TriggerAlways:
		return true
	case TriggerOnSuccess:
		return success
	case TriggerOnFailure:
		return !success
	}
	return false
}

// EmissionTrigger names the condition and the units that fire a signal
type EmissionTrigger struct {
	Condition      TriggerCondition `json:"condition"`
	ExecutionUnits []string         `json:"execution_units"`
}

// Includes reports whether unit is part of the trigger set
func (t EmissionTrigger) Includes(unit string) bool {
	for _, u := range t.ExecutionUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// SignalConsumer is one entry of intended_consumers; extra keys are kept in Attributes
type SignalConsumer struct {
	Consumer   string                 `json:"consumer"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SignalDefinition is the parsed form of one declarative signal source
type SignalDefinition struct {
	Name              string                 `json:"name"`
	Version           string                 `json:"version"`
	Domain            string                 `json:"domain"`
	SignalType        SignalType             `json:"signal_type"`
	Description       string                 `json:"description"`
	Trigger           EmissionTrigger        `json:"emission_trigger"`
	Schema            map[string]interface{} `json:"schema"`
	IntendedConsumers []SignalConsumer       `json:"intended_consumers"`
	Origin            string                 `json:"origin,omitempty"`
}

// PrimaryConsumer returns the first intended consumer, or "unknown" when none is declared
func (s SignalDefinition) PrimaryConsumer() string {
	if len(s.IntendedConsumers) == 0 || s.IntendedConsumers[0].Consumer == "" {
		return "unknown"
	}
	return s.IntendedConsumers[0].Consumer
}

// TenantContext is threaded through every operation for collaborators to enforce isolation
type TenantContext struct {
	OrganizationID string `json:"organization_id"`
	WorkspaceID    string `json:"workspace_id"`
	UserID         string `json:"user_id"`
}

// Map returns the tenant as the flat string map collaborators expect on the wire
func (t TenantContext) Map() map[string]string {
	return map[string]string{
		"organization_id": t.OrganizationID,
		"workspace_id":    t.WorkspaceID,
		"user_id":         t.UserID,
	}
}

// EmissionResult records one emission attempt. It is terminal at creation.
type EmissionResult struct {
	SignalName string     `json:"signal_name"`
	SignalType SignalType `json:"signal_type"`
	Success    bool       `json:"success"`
	EmissionID uuid.UUID  `json:"emission_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Error      string     `json:"error,omitempty"`
}

// CompletionEvent is reported by the orchestrator after it ran one execution unit
type CompletionEvent struct {
	Unit     string                 `json:"unit"`
	IntentID uuid.UUID              `json:"intent_id"`
	Tenant   TenantContext          `json:"tenant"`
	Success  bool                   `json:"success"`
	Result   map[string]interface{} `json:"result"`
}
