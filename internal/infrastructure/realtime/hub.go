// Package realtime pushes row changes to websocket clients of the same tenant.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrHubClosed is returned by Serve after Close
var ErrHubClosed = errors.New("realtime: hub closed")

// tables maps aggregate types to the table names clients subscribe to
var tables = map[string]string{
	"quote":     "quotes",
	"invoice":   "invoices",
	"expense":   "expenses",
	"supplier":  "suppliers",
	"contact":   "contacts",
	"audio_job": "audio_jobs",
	"tax_rate":  "tax_rates",
}

// Message is the payload sent for every row change
type Message struct {
	EventID   uuid.UUID         `json:"event_id"`
	Type      shared.ChangeType `json:"type"`
	Table     string            `json:"table"`
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"commit_timestamp"`
}

// ParseTables splits a comma separated subscription list
func ParseTables(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Hub tracks connected clients per tenant and fans out change events.
// It is subscribed to the event bus as a wildcard handler.
type Hub struct {
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup

	onConnect func(delta int)
}

// NewHub creates a hub
func NewHub(cfg config.RealtimeConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 64
	}
	h := &Hub{
		cfg:       cfg,
		logger:    logger,
		clients:   make(map[uuid.UUID]map[*client]struct{}),
		onConnect: func(int) {},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// OnConnectionChange registers a callback receiving +1/-1 per connection
func (h *Hub) OnConnectionChange(fn func(delta int)) {
	h.onConnect = fn
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Serve upgrades the request and registers the connection for tenantID.
// An empty tables list subscribes to every table.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tenantID, userID uuid.UUID, subscribe []string) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:      h,
		conn:     conn,
		tenantID: tenantID,
		userID:   userID,
		send:     make(chan []byte, h.cfg.SendBufferSize),
		done:     make(chan struct{}),
	}
	if len(subscribe) > 0 {
		c.tables = make(map[string]bool, len(subscribe))
		for _, t := range subscribe {
			c.tables[t] = true
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	if h.clients[tenantID] == nil {
		h.clients[tenantID] = make(map[*client]struct{})
	}
	h.clients[tenantID][c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	h.onConnect(1)
	h.logger.Debug("realtime client connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()),
		zap.Strings("tables", subscribe))

	go c.writePump()
	go c.readPump()
	return nil
}

// Handle implements shared.EventHandler
func (h *Hub) Handle(_ context.Context, event shared.DomainEvent) error {
	table, ok := tables[event.AggregateType()]
	if !ok {
		return nil
	}
	data, err := json.Marshal(Message{
		EventID:   event.EventID(),
		Type:      event.Change(),
		Table:     table,
		ID:        event.AggregateID(),
		Timestamp: event.OccurredAt(),
	})
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients[event.TenantID()] {
		if !c.wants(table) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("realtime client too slow, disconnecting", zap.String("tenant_id", c.tenantID.String()))
		h.unregister(c)
	}
	return nil
}

// EventTypes implements shared.EventHandler; the hub receives every event
func (h *Hub) EventTypes() []string {
	return nil
}

// Connections returns the number of clients of tenantID
func (h *Hub) Connections(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// Close disconnects every client and waits for their goroutines
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
	h.wg.Wait()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set := h.clients[c.tenantID]
	_, present := set[c]
	if present {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.tenantID)
		}
	}
	h.mu.Unlock()

	c.stop()
	if present {
		h.onConnect(-1)
	}
}

var _ shared.EventHandler = (*Hub)(nil)
