package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.URL.Query().Get("tenant"))
		if err != nil {
			http.Error(w, "bad tenant", http.StatusBadRequest)
			return
		}
		_ = hub.Serve(w, r, tenantID, uuid.New(), ParseTables(r.URL.Query().Get("tables")))
	}))
}

func dial(t *testing.T, srv *httptest.Server, tenantID uuid.UUID, tables string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?tenant=" + tenantID.String() + "&tables=" + tables
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{PingInterval: time.Second, WriteTimeout: time.Second, SendBufferSize: 8}
}

func TestHub_FansOutPerTenantAndTable(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testConfig(), nil)
	var connections atomic.Int64
	hub.OnConnectionChange(func(d int) { connections.Add(int64(d)) })
	srv := newTestServer(t, hub)
	defer srv.Close()
	defer hub.Close()

	tenantA, tenantB := uuid.New(), uuid.New()
	connA := dial(t, srv, tenantA, "quotes")
	defer connA.Close()
	connB := dial(t, srv, tenantB, "")
	defer connB.Close()

	require.Eventually(t, func() bool {
		return hub.Connections(tenantA) == 1 && hub.Connections(tenantB) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(2), connections.Load())

	ctx := context.Background()
	quoteID := uuid.New()
	require.NoError(t, hub.Handle(ctx, shared.NewRowChangedEvent("invoice", shared.ChangeInsert, uuid.New(), tenantA)))
	require.NoError(t, hub.Handle(ctx, shared.NewRowChangedEvent("contact", shared.ChangeDelete, uuid.New(), tenantB)))
	require.NoError(t, hub.Handle(ctx, shared.NewRowChangedEvent("quote", shared.ChangeUpdate, quoteID, tenantA)))
	require.NoError(t, hub.Handle(ctx, shared.NewRowChangedEvent("unknown", shared.ChangeUpdate, uuid.New(), tenantA)))

	msg := readMessage(t, connA)
	assert.Equal(t, "quotes", msg.Table, "invoice change filtered out")
	assert.Equal(t, shared.ChangeUpdate, msg.Type)
	assert.Equal(t, quoteID, msg.ID)

	msg = readMessage(t, connB)
	assert.Equal(t, "contacts", msg.Table)
	assert.Equal(t, shared.ChangeDelete, msg.Type)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testConfig(), nil)
	srv := newTestServer(t, hub)
	defer srv.Close()
	defer hub.Close()

	tenantID := uuid.New()
	conn := dial(t, srv, tenantID, "")
	require.Eventually(t, func() bool { return hub.Connections(tenantID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections(tenantID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testConfig(), nil)
	srv := newTestServer(t, hub)
	defer srv.Close()

	tenantID := uuid.New()
	conn := dial(t, srv, tenantID, "")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connections(tenantID) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Connections(tenantID))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.ErrorIs(t, hub.Serve(rec, req, tenantID, uuid.New(), nil), ErrHubClosed)
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(config.RealtimeConfig{AllowedOrigins: []string{"https://app.ribotflow.test"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, hub.checkOrigin(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://app.ribotflow.test")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.test")
	assert.False(t, hub.checkOrigin(req))
}

func TestParseTables(t *testing.T) {
	assert.Equal(t, []string{"quotes", "invoices"}, ParseTables(" quotes, ,invoices"))
	assert.Nil(t, ParseTables(""))
}
