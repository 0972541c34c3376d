package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout  = 5 * time.Second
	clientBacklog = 32
)

type envelope struct {
	StrategyID string    `json:"strategyId,omitempty"`
	Event      string    `json:"event"`
	Payload    any       `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub relays notifications to connected websocket dashboards. Slow
// clients get dropped rather than backing up the senders.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan envelope
}

// NewHub creates an empty relay hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

var _ Notifier = (*Hub)(nil)

// ServeHTTP upgrades the request and registers the connection until it
// drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan envelope, clientBacklog)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

// Notify broadcasts the event to every connected client.
func (h *Hub) Notify(strategyID, event string, payload any) {
	msg := envelope{
		StrategyID: strategyID,
		Event:      event,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client is not keeping up, cut it loose.
			delete(h.clients, c)
			close(c.send)
			h.log.Warn().Msg("dropping slow websocket client")
		}
	}
}

// Close disconnects every client and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (h *Hub) readLoop(c *client) {
	// Inbound frames are ignored, the loop only detects disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
