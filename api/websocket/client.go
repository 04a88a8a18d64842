package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// AllMetrics subscribes a client to every metric.
const AllMetrics = "*"

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	metrics map[string]bool
}

type IncomingMessage struct {
	Type     string `json:"type"`
	MetricID string `json:"metric_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, metricID string) *Client {
	c := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.settings.ClientBuffer),
		metrics: make(map[string]bool),
	}
	if metricID != "" {
		c.metrics[metricID] = true
	}
	return c
}

func (c *Client) watches(metricID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics[AllMetrics] || c.metrics[metricID]
}

// Subscriptions returns the metric ids the client watches.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.metrics))
	for id := range c.metrics {
		out = append(out, id)
	}
	return out
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	s := c.hub.settings
	c.conn.SetReadLimit(s.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.PongTimeout))
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
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	s := c.hub.settings
	ticker := time.NewTicker(s.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	id := validation.SanitizeString(msg.MetricID)
	switch msg.Type {
	case "subscribe":
		if id != AllMetrics {
			if err := validation.ValidateMetricID(id); err != nil {
				c.sendError(err.Error())
				return
			}
		}
		c.mu.Lock()
		c.metrics[id] = true
		c.mu.Unlock()
		logger.WithMetric(id).Debug("Client subscribed")
		c.sendConfirmation("subscribed", id)
	case "unsubscribe":
		c.mu.Lock()
		if id == "" {
			c.metrics = make(map[string]bool)
		} else {
			delete(c.metrics, id)
		}
		c.mu.Unlock()
		c.sendConfirmation("unsubscribed", id)
	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

func (c *Client) sendConfirmation(action, metricID string) {
	c.enqueue(NewMessage(MessageTypeSubscription, metricID, SubscriptionData{Action: action}).JSON())
}

func (c *Client) sendError(reason string) {
	c.enqueue(NewMessage(MessageTypeError, "", ErrorData{Error: reason}).JSON())
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping message")
	}
}

// ServeWebSocket upgrades the request and starts the client pumps. The
// optional metric_id query parameter subscribes the client immediately.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.ReadBufferSize,
		WriteBufferSize: hub.settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		if hub.Full() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		metricID := validation.SanitizeString(c.Query("metric_id"))
		if metricID != "" && metricID != AllMetrics {
			if err := validation.ValidateMetricID(metricID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, metricID)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
