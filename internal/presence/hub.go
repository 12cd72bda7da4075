// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/samber/oops"
	"nhooyr.io/websocket"
)

// Event types relayed by the hub.
const (
	EventJoined = "joined"
	EventAdded  = "added"
)

// ErrClosed is returned by Announce after Shutdown.
var ErrClosed = errors.New("presence hub closed")

// Envelope is the wire frame exchanged with clients.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Observer receives membership and delivery signals. Implementations must be
// safe for concurrent use.
type Observer interface {
	ConnectionsChanged(delta int)
	FrameDropped(event string)
}

type nopObserver struct{}

func (nopObserver) ConnectionsChanged(int) {}
func (nopObserver) FrameDropped(string)    {}

// Hub owns the membership of the games namespace.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	// wg tracks each connection's read loop and write pump.
	wg sync.WaitGroup

	logger         *slog.Logger
	observer       Observer
	originPatterns []string
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver reports membership changes and dropped frames to o.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithOriginPatterns sets the host patterns accepted for cross-origin
// upgrades. Same-origin requests are always accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) {
		h.originPatterns = append(h.originPatterns, patterns...)
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:  make(map[*Client]struct{}),
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and runs the client's read
// loop until the peer disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Debug("presence upgrade rejected", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(conn, cancel)
	if !h.add(c) {
		//nolint:errcheck // best effort notice before dropping the socket
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.wg.Done()
	//nolint:errcheck // the peer or a failed write may have closed it already
	defer conn.CloseNow()
	defer h.remove(c)

	go h.writePump(c)
	h.readLoop(ctx, c)
}

// Announce delivers an event to every connected client.
func (h *Hub) Announce(event string, data any) error {
	f, err := encode(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return oops.Code("PRESENCE_CLOSED").With("event", event).Wrap(ErrClosed)
	}

	h.broadcast(f, nil)
	return nil
}

// Shutdown disconnects every client and waits for their goroutines to exit.
// Later upgrades are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
	h.logger.Info("presence hub stopped", "clients", len(clients))
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	// One for the read loop, one for the write pump.
	h.wg.Add(2)
	h.observer.ConnectionsChanged(1)
	h.logger.Debug("presence client connected", "client_id", c.id)
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	if ok {
		h.observer.ConnectionsChanged(-1)
		h.logger.Debug("presence client disconnected", "client_id", c.id)
	}
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		_, payload, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug("presence read ended", "client_id", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			h.logger.Debug("presence frame ignored", "client_id", c.id, "reason", "malformed", "error", err)
			continue
		}

		switch env.Type {
		case EventJoined, EventAdded:
			f, err := encode(env.Type, env.Data)
			if err != nil {
				h.logger.Debug("presence frame ignored", "client_id", c.id, "reason", "unencodable", "error", err)
				continue
			}
			h.broadcast(f, c)
		default:
			h.logger.Debug("presence frame ignored", "client_id", c.id, "reason", "unknown type", "type", env.Type)
		}
	}
}

// broadcast queues f for every client except the sender. The recipient set
// is a snapshot taken under the read lock.
func (h *Hub) broadcast(f frame, except *Client) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != except {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		if c.enqueue(f) || c.closed() {
			continue
		}
		h.observer.FrameDropped(f.event)
		h.logger.Warn("presence send buffer full, dropping frame", "client_id", c.id, "type", f.event)
	}
}

// writePump drains the client's queue until the client is closed. A failed
// write closes the client, which ends its read loop.
func (h *Hub) writePump(c *Client) {
	defer h.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, f.payload)
			cancel()
			if err != nil {
				h.logger.Debug("presence write failed", "client_id", c.id, "type", f.event, "error", err)
				c.close()
				return
			}
		}
	}
}

func encode(event string, data any) (frame, error) {
	var raw json.RawMessage
	switch v := data.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return frame{}, oops.Code("PRESENCE_ENCODE_FAILED").With("event", event).Wrap(err)
		}
		raw = b
	}

	payload, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		return frame{}, oops.Code("PRESENCE_ENCODE_FAILED").With("event", event).Wrap(err)
	}
	return frame{event: event, payload: payload}, nil
}
