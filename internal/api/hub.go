// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/metrics"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/gorilla/websocket"
)

const (
	clientBuffer  = 64
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	maxClientRead = 512
)

// Message types on the event stream.
const (
	MsgSnapshot = "snapshot"
	MsgState    = "state"
	MsgStarted  = "started"
	MsgStopped  = "stopped"
	MsgFailed   = "failed"
	MsgNotice   = "notice"
)

// Message is one frame of the event stream.
type Message struct {
	Type   string               `json:"type"`
	At     time.Time            `json:"at"`
	State  tether.State         `json:"state,omitempty"`
	Reason tether.FailureReason `json:"reason,omitempty"`
	Kind   tether.Kind          `json:"kind,omitempty"`
	Error  string               `json:"error,omitempty"`
	Notice tether.Notice        `json:"notice,omitempty"`
	Status *tether.Status       `json:"status,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards client frames and returns when the connection fails.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxClientRead)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub fans status sink notifications out to WebSocket clients. It is a
// tether.StatusSink; sends never block the control loop, and a client
// whose buffer is full is disconnected.
type Hub struct {
	status   func() tether.Status
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

var _ tether.StatusSink = (*Hub)(nil)

// NewHub creates a hub. status supplies the snapshot sent to each new client.
func NewHub(status func() tether.Status) *Hub {
	return &Hub{
		status:  status,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

// sameOrigin accepts non-browser clients and browsers on the API's own host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// ServeHTTP upgrades the request and streams events until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Str("event", "stream.upgrade_failed").Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	logger.Info().Str("event", "stream.connected").Str("remote_addr", r.RemoteAddr).Msg("event stream client connected")

	st := h.status()
	h.deliver(c, Message{Type: MsgSnapshot, At: time.Now(), State: st.State, Status: &st})

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	c.readPump()

	h.remove(c)
	logger.Info().Str("event", "stream.disconnected").Str("remote_addr", r.RemoteAddr).Msg("event stream client disconnected")
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	metrics.SetStreamClients(len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.SetStreamClients(len(h.clients))
	}
}

// deliver queues one message for a single client.
func (h *Hub) deliver(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	_, ok := h.clients[c]
	full := false
	if ok {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		metrics.IncStreamDrop()
		h.remove(c)
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Str("event", "stream.marshal_failed").Msg("failed to encode stream message")
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	logger := log.WithComponent("api")
	for _, c := range slow {
		logger.Warn().Str("event", "stream.client_dropped").Msg("event stream client too slow, disconnecting")
		metrics.IncStreamDrop()
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their writers to finish.
// Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.SetStreamClients(0)
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) OnStateChanged(s tether.State) {
	h.broadcast(Message{Type: MsgState, At: time.Now(), State: s})
}

func (h *Hub) OnStarted() {
	h.broadcast(Message{Type: MsgStarted, At: time.Now(), State: tether.StateRunning})
}

func (h *Hub) OnStopped() {
	h.broadcast(Message{Type: MsgStopped, At: time.Now(), State: tether.StateStopped})
}

func (h *Hub) OnFailed(reason tether.FailureReason, f *tether.Failure) {
	msg := Message{Type: MsgFailed, At: time.Now(), Reason: reason}
	if f != nil {
		msg.Kind = f.Kind
		msg.Error = f.Error()
	}
	h.broadcast(msg)
}

func (h *Hub) OnNotice(n tether.Notice) {
	h.broadcast(Message{Type: MsgNotice, At: time.Now(), Notice: n})
}
