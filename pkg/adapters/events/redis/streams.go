package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/ports"
)

const (
	keyPrefix    = "datafabric:events:"
	readCount    = 10
	readBlock    = time.Second
	retryBackoff = time.Second
)

// StreamsEventBus implements ports.EventBus on Redis Streams with one
// consumer group per deployment, so each completion is handled by exactly
// one replica
type StreamsEventBus struct {
	client        *redis.Client
	logger        *zap.Logger
	consumerGroup string
	consumerName  string
	maxLen        int64

	mu      sync.Mutex
	readers map[string][]context.CancelFunc
	wg      sync.WaitGroup
}

// NewStreamsEventBus creates a Redis Streams event bus. maxLen caps each
// stream approximately; zero leaves streams untrimmed.
func NewStreamsEventBus(client *redis.Client, consumerGroup, consumerName string, maxLen int64, logger *zap.Logger) (*StreamsEventBus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerGroup == "" || consumerName == "" {
		return nil, errors.New("consumer group and consumer name are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamsEventBus{
		client:        client,
		logger:        logger,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		maxLen:        maxLen,
		readers:       make(map[string][]context.CancelFunc),
	}, nil
}

// Publish appends event to the stream backing topic
func (e *StreamsEventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	streamKey := StreamKey(topic)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"type": string(event.Type),
			"data": string(data),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}
	if _, err := e.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream %s: %w", streamKey, err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("stream", streamKey))
	return nil
}

// Subscribe starts a reader for topic that runs until ctx is cancelled,
// Unsubscribe is called for the topic, or the bus is closed
func (e *StreamsEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	streamKey := StreamKey(topic)

	err := e.client.XGroupCreateMkStream(ctx, streamKey, e.consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	readCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.readers[topic] = append(e.readers[topic], cancel)
	e.mu.Unlock()

	e.logger.Info("subscribed to event stream",
		zap.String("stream", streamKey),
		zap.String("consumer_group", e.consumerGroup),
		zap.String("consumer", e.consumerName))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.readStream(readCtx, streamKey, handler)
	}()
	return nil
}

// readStream first replays the entries this consumer received but never
// acknowledged, then reads new entries. Entries whose handler fails during
// the replay stay pending for the next subscriber.
func (e *StreamsEventBus) readStream(ctx context.Context, streamKey string, handler ports.EventHandler) {
	cursor := "0"
	for ctx.Err() == nil {
		replaying := cursor != ">"
		args := &redis.XReadGroupArgs{
			Group:    e.consumerGroup,
			Consumer: e.consumerName,
			Streams:  []string{streamKey, cursor},
			Count:    readCount,
			Block:    readBlock,
		}
		if replaying {
			// a negative Block omits BLOCK; zero would wait forever
			args.Block = -1
		}

		streams, err := e.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				if replaying && ctx.Err() == nil {
					cursor = ">"
				}
				continue
			}
			e.logger.Error("failed to read from stream",
				zap.String("stream", streamKey),
				zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff):
			}
			continue
		}

		read := 0
		for _, stream := range streams {
			for _, message := range stream.Messages {
				read++
				if replaying {
					cursor = message.ID
				}
				e.processMessage(ctx, streamKey, message, handler)
			}
		}
		if replaying && read == 0 {
			e.logger.Debug("pending entries replayed", zap.String("stream", streamKey))
			cursor = ">"
		}
	}
}

// processMessage acknowledges a message only after its handler succeeded;
// undecodable messages are acknowledged so they do not block the group
func (e *StreamsEventBus) processMessage(ctx context.Context, streamKey string, message redis.XMessage, handler ports.EventHandler) {
	data, ok := message.Values["data"].(string)
	if !ok {
		e.logger.Error("invalid message format",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID))
		e.ack(ctx, streamKey, message.ID)
		return
	}

	var event ports.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		e.logger.Error("failed to unmarshal event",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		e.ack(ctx, streamKey, message.ID)
		return
	}

	if err := handler(ctx, event); err != nil {
		e.logger.Error("event handler failed",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	e.ack(ctx, streamKey, message.ID)
}

func (e *StreamsEventBus) ack(ctx context.Context, streamKey, id string) {
	if err := e.client.XAck(ctx, streamKey, e.consumerGroup, id).Err(); err != nil {
		e.logger.Error("failed to acknowledge message",
			zap.String("stream", streamKey),
			zap.String("message_id", id),
			zap.Error(err))
	}
}

// Unsubscribe stops every reader on topic. The consumer group is kept, and a
// later Subscribe with the same consumer name replays its pending entries.
func (e *StreamsEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	cancels := e.readers[topic]
	delete(e.readers, topic)
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

// Close stops all readers and waits for them. The Redis client is owned by the caller.
func (e *StreamsEventBus) Close() error {
	e.mu.Lock()
	for topic, cancels := range e.readers {
		for _, cancel := range cancels {
			cancel()
		}
		delete(e.readers, topic)
	}
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// StreamKey returns the Redis stream key backing topic
func StreamKey(topic string) string {
	return keyPrefix + topic
}
