package workers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

var errMissingUnit = errors.New("completion event has no unit")

// EncodeCompletion wraps a completion in the event bus envelope
func EncodeCompletion(c domain.CompletionEvent) (ports.Event, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return ports.Event{}, fmt.Errorf("failed to marshal completion: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return ports.Event{}, fmt.Errorf("failed to unmarshal completion: %w", err)
	}
	return ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeUnitCompleted,
		Timestamp: time.Now().UTC(),
		Subject:   c.Unit,
		Data:      data,
	}, nil
}

// DecodeCompletion reads a completion from an event envelope. The unit
// falls back to the event subject when the payload omits it.
func DecodeCompletion(e ports.Event) (domain.CompletionEvent, error) {
	var c domain.CompletionEvent
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return c, fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("failed to decode completion: %w", err)
	}
	if c.Unit == "" {
		c.Unit = e.Subject
	}
	if c.Unit == "" {
		return c, errMissingUnit
	}
	return c, nil
}
