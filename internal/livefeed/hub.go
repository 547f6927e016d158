// internal/livefeed/hub.go
package livefeed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tamzrod/magscan/internal/acquire"
	"github.com/tamzrod/magscan/internal/geometry"
	"github.com/tamzrod/magscan/internal/monitoring"
	"github.com/tamzrod/magscan/internal/motion"
)

// Message is one stamped batch as sent to browsers.
type Message struct {
	Counter uint64            `json:"counter"`
	Theta   int               `json:"theta"`
	R       int               `json:"r"`
	Z       int               `json:"z"`
	Samples []geometry.Sample `json:"samples"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub turns stamped records into located samples and broadcasts them.
// Push never blocks: a client that falls behind loses messages.
type Hub struct {
	mapper  geometry.Mapper
	buffer  int
	dropped atomic.Uint64

	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
}

func NewHub(mapper geometry.Mapper, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		mapper:  mapper,
		buffer:  buffer,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
	}
}

// Push implements acquire.RecordSink.
func (h *Hub) Push(rec acquire.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	pos := motion.Position{Theta: rec.Stamp.Theta, R: rec.Stamp.R, Z: rec.Stamp.Z}
	msg := Message{
		Counter: rec.Stamp.Counter,
		Theta:   pos.Theta,
		R:       pos.R,
		Z:       pos.Z,
		Samples: h.mapper.Samples(pos, rec.Words),
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts messages lost to slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send) // stops writePump
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Handler serves the websocket endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			monitoring.Logf("[livefeed] upgrade failed: %v", err)
			return
		}
		c := &client{conn: conn, send: make(chan Message, h.buffer)}
		h.add(c)
		go c.writePump()
		monitoring.Logf("[livefeed] client %s connected", conn.RemoteAddr())

		defer func() {
			h.remove(c)
			monitoring.Logf("[livefeed] client %s disconnected", conn.RemoteAddr())
		}()

		// read pump: clients only listen; we still need reads to see the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	return mux
}

// Serve runs the HTTP server on ln until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		h.closeAll()
	})
	defer stop()

	monitoring.Logf("[livefeed] serving on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
