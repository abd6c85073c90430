package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/adapters/events/memory"
	"github.com/aescanero/datafabric/pkg/adapters/sink"
	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

func startStream(t *testing.T, query string) (*Handler, *sink.EventSink, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := memory.NewEventBus(nil)
	t.Cleanup(func() { _ = bus.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHandler(bus, nil)
	require.NoError(t, h.Start(ctx))

	router := gin.New()
	router.GET("/api/v1/ws/signals", h.HandleSignalStream)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/signals" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	s, err := sink.NewEventSink(bus, nil)
	require.NoError(t, err)
	return h, s, conn
}

func TestStreamDeliversSignals(t *testing.T) {
	_, s, conn := startStream(t, "")
	tenant := domain.TenantContext{OrganizationID: "org-a"}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.EmitAdvisor(context.Background(), "advisor_labeling_capacity", map[string]interface{}{"backlog": 12}, tenant, "workforce-planner", ts)
	require.NoError(t, err)

	var msg SignalMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "advisor_labeling_capacity", msg.Signal)
	assert.Equal(t, "advisor", msg.SignalType)
	assert.Equal(t, "workforce-planner", msg.Consumer)
	assert.Equal(t, "org-a", msg.Tenant["organization_id"])
	assert.Equal(t, float64(12), msg.Value["backlog"])
	assert.True(t, ts.Equal(msg.Timestamp))
}

func TestStreamFilters(t *testing.T) {
	_, s, conn := startStream(t, "?type=outcome&organization=org-b")
	ctx := context.Background()

	_, _ = s.EmitMetric(ctx, "metric_data_ingestion_volume", nil, domain.TenantContext{OrganizationID: "org-b"}, time.Now())
	_, _ = s.EmitOutcome(ctx, "outcome_connection_health", nil, domain.TenantContext{OrganizationID: "org-a"}, time.Now())
	_, _ = s.EmitOutcome(ctx, "outcome_schema_validation", nil, domain.TenantContext{OrganizationID: "org-b"}, time.Now())

	var msg SignalMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "outcome_schema_validation", msg.Signal)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	h, _, conn := startStream(t, "")
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestToMessageAcceptsDecodedPayloads(t *testing.T) {
	msg := toMessage(ports.Event{
		ID:      "e1",
		Subject: "metric_transformation_throughput",
		Data: map[string]interface{}{
			"signal_type": "metric",
			"tenant":      map[string]interface{}{"organization_id": "org-z"},
			"value":       map[string]interface{}{"rows_per_second": 1200.5},
		},
	})
	assert.Equal(t, "metric", msg.SignalType)
	assert.Equal(t, "org-z", msg.Tenant["organization_id"])
	assert.Equal(t, 1200.5, msg.Value["rows_per_second"])
	assert.Empty(t, msg.Consumer)
}
