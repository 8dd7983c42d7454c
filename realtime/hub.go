// Package realtime keeps the authenticated websocket connections of this process.
//
// Presence here is process-local and rebuilt as clients reconnect after a restart.
// It is never consulted for authorization; the session store is the source of truth.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/rs/zerolog/log"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 90 * time.Second
	writeWait           = 10 * time.Second
	maxMessageSize      = 64 * 1024
)

// Message types pushed by the hub.
const (
	TypeUserOnline     = "user_online"
	TypeUserOffline    = "user_offline"
	TypeSessionRevoked = "session_revoked"
	TypePong           = "pong"
)

var _ sessions.Listener = (*Hub)(nil)

// Message is the envelope for every frame written to a client.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
}

type conn struct {
	id        string
	userID    string
	sessionID string
	ws        *websocket.Conn
	connected time.Time
	expiresAt time.Time  // zero never expires
	mu        sync.Mutex // serializes writes
	closeOnce sync.Once
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

// close sends a close frame with reason and tears down the socket. Safe to call twice.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		c.mu.Unlock()
		_ = c.ws.Close()
	})
}

// Presence describes one user with at least one open connection.
type Presence struct {
	UserID      string    `json:"userId"`
	Connections int       `json:"connections"`
	Since       time.Time `json:"since"`
}

// Hub tracks open connections by user.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[string]*conn // userID -> conn id -> conn

	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongWait     time.Duration
	nowFunc      func() time.Time
}

// HubOption defines a function type to modify the Hub instance.
type HubOption func(*Hub)

// WithPingInterval sets how often the server pings each client. pongWait must exceed it.
func WithPingInterval(pingInterval, pongWait time.Duration) HubOption {
	return func(h *Hub) {
		if pingInterval > 0 && pongWait > pingInterval {
			h.pingInterval = pingInterval
			h.pongWait = pongWait
		}
	}
}

// WithCheckOrigin restricts which browser origins may open a socket.
func WithCheckOrigin(check func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

func WithNowTime(nowFunc func() time.Time) HubOption {
	return func(h *Hub) {
		h.nowFunc = nowFunc
	}
}

func NewHub(options ...HubOption) *Hub {
	h := &Hub{
		users: make(map[string]map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pingInterval: defaultPingInterval,
		pongWait:     defaultPongWait,
		nowFunc:      time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// ServeWS upgrades an already authenticated request and blocks until the socket closes.
// The socket is revoked once expiresAt passes, as the session it was opened under is then gone.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, sessionID string, expiresAt time.Time) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("websocket upgrade failed")
		return
	}

	c := &conn{
		id:        uuid.NewString(),
		userID:    userID,
		sessionID: sessionID,
		ws:        ws,
		connected: h.nowFunc().UTC(),
		expiresAt: expiresAt,
	}
	if first := h.register(c); first {
		h.Broadcast(TypeUserOnline, map[string]string{"userId": userID})
	}
	log.Debug().Str("userId", userID).Str("sessionId", sessionID).Msg("websocket connected")

	done := make(chan struct{})
	defer func() {
		close(done)
		c.close(websocket.CloseNormalClosure, "")
		if last := h.unregister(c); last {
			h.Broadcast(TypeUserOffline, map[string]string{"userId": userID})
		}
		log.Debug().Str("userId", userID).Str("sessionId", sessionID).Msg("websocket disconnected")
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go h.pingLoop(c, done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("userId", userID).Msg("ignoring malformed websocket message")
			continue
		}
		if msg.Type == "ping" {
			if err := h.send(c, TypePong, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) pingLoop(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if c.expired(h.nowFunc()) {
				log.Debug().Str("userId", c.userID).Str("sessionId", c.sessionID).Msg("websocket session expired")
				h.revoke([]*conn{c})
				return
			}
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *conn) (first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[c.userID]
	if !ok {
		conns = make(map[string]*conn)
		h.users[c.userID] = conns
	}
	conns[c.id] = c
	metrics.RealtimeConnections.Inc()
	return len(conns) == 1
}

func (h *Hub) unregister(c *conn) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c.id]; !ok {
		return false
	}
	delete(conns, c.id)
	metrics.RealtimeConnections.Dec()
	if len(conns) == 0 {
		delete(h.users, c.userID)
		return true
	}
	return false
}

func (h *Hub) encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: h.nowFunc().UTC(),
		Payload:   payload,
	})
}

func (h *Hub) send(c *conn, msgType string, payload any) error {
	data, err := h.encode(msgType, payload)
	if err != nil {
		return fmt.Errorf("[Hub.send] marshal: %w", err)
	}
	return c.write(data)
}

// snapshot copies the matching connections so writes happen outside the lock.
func (h *Hub) snapshot(match func(c *conn) bool) []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*conn
	for _, conns := range h.users {
		for _, c := range conns {
			if match(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func (h *Hub) deliver(targets []*conn, msgType string, payload any) int {
	if len(targets) == 0 {
		return 0
	}
	data, err := h.encode(msgType, payload)
	if err != nil {
		log.Err(err).Str("type", msgType).Msg("failed to encode realtime message")
		return 0
	}
	delivered := 0
	for _, c := range targets {
		if err := c.write(data); err != nil {
			log.Debug().Err(err).Str("userId", c.userID).Msg("realtime write failed")
			continue
		}
		delivered++
	}
	return delivered
}

// SendToUser pushes a message to every open connection of the user and
// returns how many received it.
func (h *Hub) SendToUser(userID, msgType string, payload any) int {
	return h.deliver(h.snapshot(func(c *conn) bool { return c.userID == userID }), msgType, payload)
}

// Broadcast pushes a message to every open connection.
func (h *Hub) Broadcast(msgType string, payload any) int {
	return h.deliver(h.snapshot(func(*conn) bool { return true }), msgType, payload)
}

// OnlineUsers lists users with at least one open connection, ordered by user id.
func (h *Hub) OnlineUsers() []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Presence, 0, len(h.users))
	for userID, conns := range h.users {
		p := Presence{UserID: userID, Connections: len(conns)}
		for _, c := range conns {
			if p.Since.IsZero() || c.connected.Before(p.Since) {
				p.Since = c.connected
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// IsOnline reports whether the user has an open connection on this process.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// DisconnectSession closes every socket opened under the session and returns how many.
func (h *Hub) DisconnectSession(sessionID string) int {
	targets := h.snapshot(func(c *conn) bool { return c.sessionID == sessionID })
	h.revoke(targets)
	return len(targets)
}

func (h *Hub) revoke(targets []*conn) {
	for _, c := range targets {
		_ = h.send(c, TypeSessionRevoked, map[string]string{"sessionId": c.sessionID})
		c.close(websocket.ClosePolicyViolation, "session ended")
	}
}

// SessionsClosed implements sessions.Listener.
func (h *Hub) SessionsClosed(sessionIDs ...string) {
	for _, id := range sessionIDs {
		h.DisconnectSession(id)
	}
}

// UserSessionsClosed implements sessions.Listener.
func (h *Hub) UserSessionsClosed(userID, exceptSessionID string) {
	h.revoke(h.snapshot(func(c *conn) bool {
		return c.userID == userID && (exceptSessionID == "" || c.sessionID != exceptSessionID)
	}))
}

// Close disconnects every client. Used on shutdown.
func (h *Hub) Close() {
	for _, c := range h.snapshot(func(*conn) bool { return true }) {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}
