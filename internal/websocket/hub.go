package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// allFlights is the subscription key for clients watching every flight.
const allFlights = ""

// Message is the JSON frame pushed to clients
type Message struct {
	Type         lifecycle.Kind      `json:"type"`
	FlightNumber string              `json:"flightNumber"`
	Flight       models.Flight       `json:"flight"`
	Previous     models.FlightStatus `json:"previous,omitempty"`
	Delay        *models.DelayEntry  `json:"delay,omitempty"`
	VirtualTime  time.Time           `json:"virtualTime"`
	Timestamp    int64               `json:"timestamp"`
}

// Client is one WebSocket connection watching one flight or all of them
type Client struct {
	id           uuid.UUID
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	flightNumber string
}

// Hub fans scheduler notifications out to WebSocket clients
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
	now        func() time.Time
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// Run is the hub's main loop; it returns when ctx is done and closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.flightNumber] == nil {
				h.clients[client.flightNumber] = make(map[*Client]bool)
			}
			h.clients[client.flightNumber][client] = true
			total := len(h.clients[client.flightNumber])
			h.mu.Unlock()
			h.logger.Debug("websocket client registered",
				zap.Stringer("client", client.id), zap.String("flight", watchName(client.flightNumber)), zap.Int("total", total))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("failed to marshal websocket message", zap.Error(err))
				continue
			}

			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients[message.FlightNumber])+len(h.clients[allFlights]))
			for c := range h.clients[message.FlightNumber] {
				targets = append(targets, c)
			}
			for c := range h.clients[allFlights] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("dropping slow websocket client", zap.Stringer("client", client.id))
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.flightNumber]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.flightNumber)
	}
	h.logger.Debug("websocket client unregistered",
		zap.Stringer("client", client.id), zap.String("flight", watchName(client.flightNumber)), zap.Int("remaining", len(clients)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, clients := range h.clients {
		for c := range clients {
			close(c.send)
		}
		delete(h.clients, key)
	}
}

// Notify queues a scheduler notification for delivery. It never blocks the
// caller; if the queue is full the message is dropped.
func (h *Hub) Notify(n lifecycle.Notification) {
	msg := &Message{
		Type:         n.Kind,
		FlightNumber: n.Flight.FlightNumber,
		Flight:       n.Flight,
		Previous:     n.Previous,
		Delay:        n.Delay,
		VirtualTime:  n.VirtualTime,
		Timestamp:    h.now().UnixMilli(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(n.Kind)), zap.String("flight", n.Flight.FlightNumber))
	}
}

// ClientCount returns the number of clients watching a flight. An empty
// flight number counts clients watching every flight.
func (h *Hub) ClientCount(flightNumber string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[flightNumber])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the request and subscribes the connection to the
// {number} route variable, or to every flight when the route has none.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	flightNumber := strings.TrimSpace(mux.Vars(r)["number"])

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:           uuid.New(),
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		flightNumber: flightNumber,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client frames and unregisters on disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Stringer("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func watchName(flightNumber string) string {
	if flightNumber == allFlights {
		return "*"
	}
	return flightNumber
}
