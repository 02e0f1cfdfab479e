package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"valhalla/internal/protocol"
	"valhalla/internal/tuning"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	server *Server

	// Registered clients
	clients map[*Client]bool

	// Clients by faction ID
	factionClients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(server *Server) *Hub {
	return &Hub{
		server:         server,
		clients:        make(map[*Client]bool),
		factionClients: make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client, 64),
		done:           make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			// Send welcome message
			h.sendWelcome(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// sendWelcome sends a welcome message to a new client.
func (h *Hub) sendWelcome(client *Client) {
	payload := protocol.WelcomePayload{
		ServerVersion: "0.1.0",
	}
	msg, _ := protocol.NewMessage(protocol.TypeWelcome, payload)
	client.Send(msg)
}

// handleDisconnect handles a client disconnecting.
func (h *Hub) handleDisconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	factionID, name := client.Faction()
	if factionID != "" && h.factionClients[factionID] == client {
		delete(h.factionClients, factionID)
		log.Printf("Faction disconnected: %s (%s)", name, factionID)
	}

	client.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
	h.factionClients = make(map[string]*Client)
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(msgType protocol.MessageType, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("Failed to build %s message: %v", msgType, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.Send(msg)
	}
}

// sendToFaction sends a message to a specific faction.
func (h *Hub) sendToFaction(factionID string, msgType protocol.MessageType, payload interface{}) {
	h.mu.RLock()
	client := h.factionClients[factionID]
	h.mu.RUnlock()

	if client == nil {
		return
	}

	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return
	}

	client.Send(msg)
}

// SetClientFaction associates a client with a faction ID.
func (h *Hub) SetClientFaction(client *Client, factionID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.factionID = factionID
	client.name = name
	client.mu.Unlock()
	h.factionClients[factionID] = client
}

// Client represents a connected WebSocket client.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan *protocol.Message
	limiter *rate.Limiter

	mu        sync.Mutex
	closed    bool
	factionID string
	name      string
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
)

// NewClient creates a new client with its own command budget.
func NewClient(hub *Hub, conn *websocket.Conn, limits tuning.RateLimits) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *protocol.Message, 256),
		limiter: rate.NewLimiter(rate.Limit(limits.CommandsPerSecond), limits.CommandBurst),
	}
}

// Send queues a message to be sent to the client.
func (c *Client) Send(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// Channel full, client too slow
		go c.hub.Unregister(c)
	}
}

// Faction returns the faction bound by authentication, or empty strings.
func (c *Client) Faction() (id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factionID, c.name
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps messages from the WebSocket to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	handlers := NewHandlers(c.hub)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid message: %v", err)
			continue
		}

		if !c.limiter.Allow() {
			reply, _ := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{
				Code:    protocol.ErrCodeRateLimited,
				Message: "too many commands",
			})
			reply.ID = msg.ID
			c.Send(reply)
			continue
		}

		// Handled inline so one connection's commands apply in order.
		handlers.Handle(c, &msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to marshal message: %v", err)
				continue
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
