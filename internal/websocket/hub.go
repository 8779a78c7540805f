package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/davie-sparq/bizot/internal/auth"
	"github.com/davie-sparq/bizot/internal/logger"
	"github.com/davie-sparq/bizot/internal/middleware"
	"github.com/gorilla/websocket"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	agents map[string]bool // agent IDs this client watches
	agMu   sync.Mutex
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	auth       *auth.Service
	port       int
}

func NewHub(authService *auth.Service, port int) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		auth:       authService,
		port:       port,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.WS("connected", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.WS("disconnected", client.userID)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop signals the Hub.Run goroutine to exit.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal broadcast message: %v", err)
		return
	}
	h.broadcast <- data
}

// BroadcastToAgent sends a message only to clients watching the given agent.
func (h *Hub) BroadcastToAgent(agentID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal agent broadcast: %v", err)
		return
	}
	h.mu.Lock()
	for client := range h.clients {
		client.agMu.Lock()
		watching := client.agents[agentID]
		client.agMu.Unlock()
		if !watching {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	// Authenticate via cookie or Authorization header (no query params)
	tokenStr := ""
	if cookie, err := r.Cookie(middleware.TokenCookie); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 {
				tokenStr = parts[1]
			}
		}
	}

	userID := ""
	if tokenStr != "" {
		claims, err := h.auth.ValidateToken(tokenStr)
		if err == nil {
			userID = claims.UserID
		}
	}
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			if origin == "" {
				return true // Allow non-browser clients
			}
			allowed := []string{
				fmt.Sprintf("http://localhost:%d", h.port),
				fmt.Sprintf("http://127.0.0.1:%d", h.port),
				"http://localhost:5173",
			}
			for _, a := range allowed {
				if origin == a {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		agents: make(map[string]bool),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// Clients send watch/unwatch to scope agent event delivery
		var msg struct {
			Type    string `json:"type"`
			AgentID string `json:"agent_id"`
		}
		if json.Unmarshal(data, &msg) == nil {
			switch msg.Type {
			case "watch":
				if msg.AgentID != "" {
					c.agMu.Lock()
					c.agents[msg.AgentID] = true
					c.agMu.Unlock()
				}
			case "unwatch":
				if msg.AgentID != "" {
					c.agMu.Lock()
					delete(c.agents, msg.AgentID)
					c.agMu.Unlock()
				}
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
