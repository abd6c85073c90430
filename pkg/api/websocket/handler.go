package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/ports"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SignalMessage is what a client receives for each emitted signal
type SignalMessage struct {
	EventID    string                 `json:"event_id"`
	Signal     string                 `json:"signal"`
	SignalType string                 `json:"signal_type"`
	Consumer   string                 `json:"consumer,omitempty"`
	Tenant     map[string]interface{} `json:"tenant,omitempty"`
	Value      map[string]interface{} `json:"value,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

type filter struct {
	signalType   string
	signal       string
	organization string
}

func (f filter) matches(m SignalMessage) bool {
	if f.signalType != "" && f.signalType != m.SignalType {
		return false
	}
	if f.signal != "" && f.signal != m.Signal {
		return false
	}
	if f.organization != "" {
		org, _ := m.Tenant["organization_id"].(string)
		if org != f.organization {
			return false
		}
	}
	return true
}

// Handler fans signal events out to WebSocket clients. It holds a single
// subscription on the signal topic for all clients.
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[uint64]chan SignalMessage
	nextID  uint64
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
		clients:  make(map[uint64]chan SignalMessage),
	}
}

// Start subscribes to the signal topic until ctx is cancelled
func (h *Handler) Start(ctx context.Context) error {
	if err := h.eventBus.Subscribe(ctx, ports.TopicSignals, h.broadcast); err != nil {
		return fmt.Errorf("failed to subscribe to signals: %w", err)
	}
	return nil
}

// Clients returns the number of connected clients
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSignalStream upgrades the request and streams matching signals
// until the client disconnects
func (h *Handler) HandleSignalStream(c *gin.Context) {
	f := filter{
		signalType:   c.Query("type"),
		signal:       c.Query("signal"),
		organization: c.Query("organization"),
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	id, messages := h.register()
	defer h.unregister(id)

	h.logger.Info("websocket connection established",
		zap.Uint64("client_id", id),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read loop only detects the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messages:
			if !f.matches(msg) {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal signal message", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("failed to write message",
					zap.Uint64("client_id", id),
					zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) register() (uint64, <-chan SignalMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan SignalMessage, clientBuffer)
	h.clients[h.nextID] = ch
	return h.nextID, ch
}

func (h *Handler) unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// broadcast delivers a signal event to every client without blocking;
// clients whose buffer is full miss the event
func (h *Handler) broadcast(_ context.Context, event ports.Event) error {
	msg := toMessage(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("client buffer full, dropping signal",
				zap.Uint64("client_id", id),
				zap.String("signal", msg.Signal))
		}
	}
	return nil
}

func toMessage(event ports.Event) SignalMessage {
	msg := SignalMessage{
		EventID:   event.ID,
		Signal:    event.Subject,
		Timestamp: event.Timestamp,
	}
	msg.SignalType, _ = event.Data["signal_type"].(string)
	msg.Consumer, _ = event.Data["consumer"].(string)
	msg.Value = asMap(event.Data["value"])
	msg.Tenant = asMap(event.Data["tenant"])
	return msg
}

// asMap accepts both the in-process payload types and their JSON-decoded form
func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	}
	return nil
}
