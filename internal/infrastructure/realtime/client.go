package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxInboundMessage = 1024

type client struct {
	hub      *Hub
	conn     *websocket.Conn
	tenantID uuid.UUID
	userID   uuid.UUID
	tables   map[string]bool
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func (c *client) wants(table string) bool {
	return c.tables == nil || c.tables[table]
}

// stop ends both pumps; the write pump closes the connection
func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// readPump only handles control frames; clients never send data
func (c *client) readPump() {
	defer c.hub.wg.Done()
	defer c.hub.unregister(c)

	pongWait := 2 * c.hub.cfg.PingInterval
	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	timeout := c.hub.cfg.WriteTimeout
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(timeout))
			return
		}
	}
}
