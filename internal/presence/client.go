// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	// sendBufferSize is the number of frames that can be queued per client.
	sendBufferSize = 16

	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second

	// readLimit caps the size of an inbound frame.
	readLimit = 64 << 10
)

// frame is a serialized envelope waiting in a client's queue.
type frame struct {
	event   string
	payload []byte
}

// Client is one socket in the namespace.
type Client struct {
	id   string
	conn *websocket.Conn

	send chan frame
	done chan struct{}

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, cancel context.CancelFunc) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan frame, sendBufferSize),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// ID returns the identifier assigned when the socket connected.
func (c *Client) ID() string {
	return c.id
}

// enqueue queues f without blocking. It reports false when the queue is full
// or the client is gone.
func (c *Client) enqueue(f frame) bool {
	if c.closed() {
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// close stops the write pump and cancels the read context, which closes the
// underlying connection. The send channel is never closed so concurrent
// enqueues cannot panic.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}
