package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// filter holds the event types the client asked for; empty means all.
	filterMu sync.RWMutex
	filter   map[models.EventType]bool
}

type IncomingMessage struct {
	Type       string   `json:"type"`
	EventTypes []string `json:"event_types,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Wants reports whether the client's filter admits the event type.
func (c *Client) Wants(eventType models.EventType) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	if len(c.filter) == 0 {
		return true
	}
	return c.filter[eventType]
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		filter := make(map[models.EventType]bool, len(msg.EventTypes))
		for _, t := range msg.EventTypes {
			filter[models.EventType(t)] = true
		}
		c.filterMu.Lock()
		c.filter = filter
		c.filterMu.Unlock()
		c.sendConfirmation("subscribed", msg.EventTypes)

	case "unsubscribe":
		c.filterMu.Lock()
		c.filter = nil
		c.filterMu.Unlock()
		c.sendConfirmation("unsubscribed", nil)
	}
}

func (c *Client) sendConfirmation(action string, eventTypes []string) {
	confirmation := map[string]interface{}{
		"type":        "subscription_update",
		"action":      action,
		"event_types": eventTypes,
		"timestamp":   time.Now(),
	}
	data, err := json.Marshal(confirmation)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
