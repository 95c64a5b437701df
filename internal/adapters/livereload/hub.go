package livereload

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/core/ports"
)

const (
	// SendBuffer is how many frames may queue for one client before it is dropped.
	SendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pages are served from the dev server's origin, not this one.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub tracks connected clients and broadcasts reload commands to them.
// Delivery is best-effort: nothing is acknowledged, retried or queued for
// clients that are not connected, and a client whose buffer is full is dropped.
type Hub struct {
	logger  ports.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates an empty Hub. m may be nil.
func NewHub(logger ports.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		clients: make(map[*client]struct{}),
	}
}

// Broadcast sends one reload command per path to every client that completed
// the handshake.
func (h *Hub) Broadcast(paths ...string) {
	if len(paths) == 0 {
		return
	}

	frames := make([][]byte, len(paths))
	for i, p := range paths {
		frames[i] = reloadMessage(p)
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.enqueue(frames) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Debug("dropping slow live-reload client")
		if h.metrics != nil {
			h.metrics.ObserveDroppedClient()
		}
		h.remove(c)
	}

	if h.metrics != nil {
		h.metrics.ObserveReload(len(paths))
	}
	for _, p := range paths {
		h.logger.Debug(fmt.Sprintf("reload %s", p))
	}
}

// ClientCount returns the number of clients that completed the handshake.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.observeClientsLocked()
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug(fmt.Sprintf("live-reload upgrade failed: %v", err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, SendBuffer)}
	go c.writePump()
	c.readPump()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.observeClientsLocked()
	return true
}

// remove unregisters c and closes its send channel. Sends happen under the
// read lock, so closing under the write lock never races with them.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
	c.close()
	h.observeClientsLocked()
}

func (h *Hub) observeClientsLocked() {
	if h.metrics != nil {
		h.metrics.SetClients(len(h.clients))
	}
}

// enqueue queues frames without blocking. It reports false if the buffer filled up.
func (c *client) enqueue(frames [][]byte) bool {
	for _, frame := range frames {
		select {
		case c.send <- frame:
		default:
			return false
		}
	}
	return true
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// readPump handles the hello handshake and then only watches for disconnects.
func (c *client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	registered := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug(fmt.Sprintf("live-reload client read: %v", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Command == commandHello && !registered {
			c.send <- helloMessage()
			if !c.hub.add(c) {
				return
			}
			registered = true
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
