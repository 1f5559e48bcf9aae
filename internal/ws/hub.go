package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents a connected WebSocket observer
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// send is written by both the hub goroutine and the client's own
	// readPump (state replays), so closing it must be synchronized with
	// every sender.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues the message unless the client was dropped or its buffer is
// full. Reports whether the message was queued.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend ends the client's writePump. Idempotent and safe against
// concurrent trySend callers.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains the set of active observers and fans events out to them.
// Publishing is fire-and-forget: a slow or absent observer never blocks the
// engine, it just loses events (or its connection).
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex

	// Pending pairing challenge and readiness, replayed to observers that
	// ask for current state after connecting.
	stateMu   sync.RWMutex
	challenge string
	ready     bool
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Msg("observer registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			log.Debug().Msg("observer unregistered")
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(message) {
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// BroadcastEvent queues an event for fan-out. Never blocks: when the queue
// is full the event is dropped.
func (h *Hub) BroadcastEvent(eventType string, data interface{}) {
	event := WSEvent{Type: eventType, Data: data}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal ws event")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		log.Warn().Str("type", eventType).Msg("event queue full, dropping")
	}
}

// ConversationUpdate is the payload of conversation_update events.
type ConversationUpdate struct {
	Phone        string               `json:"phone"`
	Customer     models.Customer      `json:"customer"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// PublishConversation notifies observers of a changed conversation.
func (h *Hub) PublishConversation(phone string, customer models.Customer, conversation *models.Conversation) {
	h.BroadcastEvent("conversation_update", ConversationUpdate{
		Phone:        phone,
		Customer:     customer,
		Conversation: conversation,
	})
}

// StatusUpdate is the payload of status events.
type StatusUpdate struct {
	Status models.TransportStatus `json:"status"`
	Detail string                 `json:"detail,omitempty"`
}

// PublishStatus notifies observers of a transport status change.
func (h *Hub) PublishStatus(status models.TransportStatus, detail string) {
	h.stateMu.Lock()
	h.ready = status == models.StatusReady
	if h.ready {
		h.challenge = ""
	}
	h.stateMu.Unlock()

	h.BroadcastEvent("status", StatusUpdate{Status: status, Detail: detail})
}

// PublishChallenge forwards a pairing challenge payload verbatim and keeps it
// for observers that connect later.
func (h *Hub) PublishChallenge(payload string) {
	h.stateMu.Lock()
	h.challenge = payload
	h.stateMu.Unlock()

	h.BroadcastEvent("qr", payload)
}

// PublishReady signals that the transport accepts sends.
func (h *Hub) PublishReady() {
	h.BroadcastEvent("ready", nil)
}

// currentState answers a request_state message: the pending challenge if one
// exists, the ready signal otherwise, or nothing while connecting.
func (h *Hub) currentState() (WSEvent, bool) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()

	if h.challenge != "" {
		return WSEvent{Type: "qr", Data: h.challenge}, true
	}
	if h.ready {
		return WSEvent{Type: "ready"}, true
	}
	return WSEvent{}, false
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade")
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "request_state" {
			if event, ok := c.hub.currentState(); ok {
				if payload, err := json.Marshal(event); err == nil {
					c.trySend(payload)
				}
			}
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
