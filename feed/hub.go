// Package feed pushes a farmer's own domain events to their open
// WebSocket connections.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"farmledger/mq"
	"farmledger/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message is what a subscriber receives for each event.
type Message struct {
	Event string   `json:"event"`
	Data  mq.Index `json:"data"`
}

type client struct {
	owner string
	conn  *websocket.Conn
	send  chan Message
}

// Hub tracks connections per owner. It satisfies mq.Emitter; a slow
// subscriber loses messages rather than blocking the emitter.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

var _ mq.Emitter = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

func (h *Hub) Emit(_ context.Context, eventName string, content mq.Index) {
	if content.OwnerId == "" {
		return
	}
	msg := Message{Event: eventName, Data: content}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[content.OwnerId] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("feed subscriber too slow, dropping event",
				zap.String("owner", c.owner), zap.String("event", eventName))
		}
	}
}

// Subscribers reports how many connections an owner has open.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.owner]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.owner] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.owner]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.owner)
	}
}

// Serve upgrades an authenticated request and streams the caller's events
// until the connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner := utils.GetUserIDFromRequest(r)
	if owner == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized: User ID missing from request")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("feed upgrade failed", zap.String("owner", owner), zap.Error(err))
		return
	}

	c := &client{owner: owner, conn: conn, send: make(chan Message, sendBuffer)}
	h.register(c)
	h.logger.Debug("feed connected", zap.String("owner", owner))

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; inbound messages are ignored.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Debug("feed disconnected", zap.String("owner", c.owner))
	}()
	c.conn.SetReadLimit(512)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
