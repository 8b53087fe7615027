// Package stream broadcasts synthesized I/Q samples to websocket clients.
//
// A [Hub] is an http.Handler that upgrades every request to a websocket
// and registers the connection. [Hub.Sink] returns a css.Sink that encodes
// samples and sends them to all registered clients in fixed-size binary
// messages.
package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by sinks of a closed hub.
var ErrClosed = errors.New("stream: hub closed")

const (
	defaultSendQueue = 64
	defaultWriteWait = 10 * time.Second
)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSendQueue sets how many messages may wait per client before the
// client is dropped as too slow.
func WithSendQueue(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.queue = n
		}
	}
}

// WithWriteTimeout bounds how long a single message may take to reach a
// client before the connection is given up.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithCheckOrigin replaces the origin check of the websocket upgrade.
func WithCheckOrigin(fn func(*http.Request) bool) HubOption {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps track of websocket clients and fans messages out to them.
type Hub struct {
	log      logrus.FieldLogger
	upgrader  websocket.Upgrader
	queue     int
	writeWait time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	joined  chan struct{}

	pumps sync.WaitGroup
	sent  atomic.Int64
}

// NewHub returns an empty hub logging to log.
func NewHub(log logrus.FieldLogger, opts ...HubOption) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}

	h := &Hub{
		log: log.WithField("component", "stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
		queue:     defaultSendQueue,
		writeWait: defaultWriteWait,
		clients:   make(map[*client]struct{}),
		joined:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.queue)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.writeClose(conn, websocket.CloseGoingAway)
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.pumps.Add(1)
	n := len(h.clients)
	h.mu.Unlock()

	select {
	case h.joined <- struct{}{}:
	default:
	}

	h.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "clients": n}).Info("client connected")

	go h.writePump(c)
	h.readPump(c)
}

// writePump sends queued messages until the queue is closed, then sends a
// close frame.
func (h *Hub) writePump(c *client) {
	defer h.pumps.Done()
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.log.WithError(err).Debug("websocket write failed")
			h.remove(c)
			return
		}
		h.sent.Add(1)
	}
	h.writeClose(c.conn, websocket.CloseNormalClosure)
}

func (h *Hub) writeClose(conn *websocket.Conn, code int) {
	conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, "")); err != nil {
		h.log.WithError(err).Debug("websocket close failed")
	}
}

// readPump discards client messages and unregisters the client on error.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.log.WithField("clients", len(h.clients)).Info("client disconnected")
}

// Broadcast queues msg for every client. Clients whose queue is full are
// dropped. The hub keeps a reference to msg, so callers must not modify it.
func (h *Hub) Broadcast(msg []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow client")
			h.removeLocked(c)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Joined is signalled, without blocking, whenever a client connects.
func (h *Hub) Joined() <-chan struct{} { return h.joined }

// Sent returns the number of messages written to clients so far.
func (h *Hub) Sent() int64 { return h.sent.Load() }

// Close stops accepting clients and messages; later broadcasts fail with
// ErrClosed. Messages already queued are still delivered. Use [Hub.Wait]
// to block until they are.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Wait blocks until every client connection has drained its queue, sent its
// close frame and closed, or until ctx is done. Call it after [Hub.Close].
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
