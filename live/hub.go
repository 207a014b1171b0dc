// Package live pushes freshly fanned-out notifications to connected clients
// over websockets. Delivery is best effort; a slow or absent client never
// blocks the fan-out.
package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"forkful/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	handle string
	conn   *websocket.Conn
	send   chan []byte
}

type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan message
}

type message struct {
	recipient string
	payload   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.clients[c.handle] == nil {
				h.clients[c.handle] = make(map[*client]bool)
			}
			h.clients[c.handle][c] = true
		case c := <-h.unregister:
			if conns, ok := h.clients[c.handle]; ok {
				if conns[c] {
					delete(conns, c)
					close(c.send)
					if len(conns) == 0 {
						delete(h.clients, c.handle)
					}
				}
			}
		case m := <-h.broadcast:
			for c := range h.clients[m.recipient] {
				select {
				case c.send <- m.payload:
				default:
					// Client too slow, drop it.
					delete(h.clients[m.recipient], c)
					close(c.send)
				}
			}
		}
	}
}

// Push implements notify.Pusher.
func (h *Hub) Push(recipient string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("live: encode push payload")
		return
	}
	select {
	case h.broadcast <- message{recipient: recipient, payload: data}:
	default:
		log.Warn().Str("recipient", recipient).Msg("live: broadcast queue full, dropping push")
	}
}

// ServeWS upgrades an authenticated request to a websocket subscribed to the
// principal's notifications.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("live: websocket upgrade failed")
		return
	}

	c := &client{handle: principal.Handle, conn: conn, send: make(chan []byte, 16)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// Inbound messages are ignored; the socket is push-only.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
