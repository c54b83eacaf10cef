// Copyright (c) 2014 - The Event Horizon authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/looplab/recall"
	"github.com/looplab/recall/outbound"
)

// DefaultClientBuffer is the number of updates buffered per client.
const DefaultClientBuffer = 16

const writeWait = 10 * time.Second

// Hub broadcasts every updated view to the connected websocket clients. A
// client can limit the views it gets with a `view` query parameter, which is
// matched as a prefix of the view ID. Clients that do not keep up miss
// updates.
type Hub struct {
	upgrader  websocket.Upgrader
	codec     outbound.Codec
	buffer    int
	logger    *slog.Logger
	clients   map[*client]struct{}
	clientsMu sync.RWMutex
}

var _ = recall.OutboundAdapter(&Hub{})
var _ = http.Handler(&Hub{})

type client struct {
	prefix string
	ch     chan []byte
}

// Option is an option setter used to configure the hub.
type Option func(*Hub)

// WithCodec uses the specified codec for encoding updates.
func WithCodec(codec outbound.Codec) Option {
	return func(h *Hub) {
		h.codec = codec
	}
}

// WithClientBuffer sets the number of updates buffered per client.
func WithClientBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithCheckOrigin sets the origin check of the websocket upgrade.
func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = f
	}
}

// WithLogger sets the logger of the hub.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// NewHub creates a new Hub.
func NewHub(options ...Option) *Hub {
	h := &Hub{
		codec:   outbound.DefaultCodec(),
		buffer:  DefaultClientBuffer,
		logger:  slog.Default().With("component", "websocket"),
		clients: map[*client]struct{}{},
	}

	for _, option := range options {
		option(h)
	}

	return h
}

// OnUpdate implements the OnUpdate method of the recall.OutboundAdapter interface.
func (h *Hub) OnUpdate(ctx context.Context, view recall.View, viewID string, events []recall.Event) error {
	data, err := h.codec.MarshalUpdate(ctx, view, viewID, events)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	missed := 0

	for c := range h.clients {
		if !strings.HasPrefix(viewID, c.prefix) {
			continue
		}

		select {
		case c.ch <- data:
		default:
			missed++
		}
	}

	if missed > 0 {
		return fmt.Errorf("%d clients missed update of %s", missed, viewID)
	}

	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams updates to it
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("could not upgrade connection", "error", err)

		return
	}
	defer conn.Close()

	c := &client{
		prefix: r.URL.Query().Get("view"),
		ch:     make(chan []byte, h.buffer),
	}

	h.add(c)
	defer h.remove(c)

	// Reading is needed to notice that the client closed the connection.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case data := <-c.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("could not write update", "error", err)

				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	delete(h.clients, c)
}
