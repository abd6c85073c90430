package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/ports"
)

// ErrClosed is returned by Publish and Subscribe after Close
var ErrClosed = errors.New("event bus closed")

type subscription struct {
	id      uint64
	handler ports.EventHandler
}

// EventBus implements ports.EventBus with in-process fan-out. Each handler
// runs in its own goroutine; Close waits for in-flight handlers.
type EventBus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string][]subscription
	nextID      uint64
	closed      bool

	inflight sync.WaitGroup
}

// NewEventBus creates an in-memory event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		logger:      logger,
		subscribers: make(map[string][]subscription),
	}
}

// Publish delivers event to every current subscriber of topic
func (b *EventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]subscription, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.inflight.Add(len(subs))
	b.mu.RUnlock()

	for _, s := range subs {
		go func(s subscription) {
			defer b.inflight.Done()
			if err := s.handler(ctx, event); err != nil {
				b.logger.Warn("event handler failed",
					zap.String("topic", topic),
					zap.String("event_id", event.ID),
					zap.String("type", string(event.Type)),
					zap.Error(err))
			}
		}(s)
	}
	return nil
}

// Subscribe registers handler on topic until ctx is cancelled
func (b *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(topic, id)
	}()
	return nil
}

// Unsubscribe removes every subscription on topic
func (b *EventBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, topic)
	return nil
}

// Close drops all subscriptions and waits for running handlers
func (b *EventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subscribers = make(map[string][]subscription)
	b.mu.Unlock()

	b.inflight.Wait()
	return nil
}

func (b *EventBus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
