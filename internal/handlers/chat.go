package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/davie-sparq/bizot/internal/chatbot"
	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/logger"
	"github.com/davie-sparq/bizot/internal/middleware"
	"github.com/davie-sparq/bizot/internal/models"
	"github.com/go-chi/chi/v5"
)

// ChatEngine runs one full chat turn. Satisfied by *chatbot.Engine.
type ChatEngine interface {
	Chat(ctx context.Context, query, agentID string, history []models.ChatTurn) (*chatbot.Result, error)
}

type ChatHandler struct {
	db        *database.DB
	engine    ChatEngine
	timeout   time.Duration
	broadcast func(msgType string, payload interface{})
	toAgent   func(agentID, msgType string, payload interface{})
}

func NewChatHandler(db *database.DB, engine ChatEngine, timeout time.Duration,
	broadcast func(string, interface{}), toAgent func(string, string, interface{})) *ChatHandler {
	if broadcast == nil {
		broadcast = func(string, interface{}) {}
	}
	if toAgent == nil {
		toAgent = func(string, string, interface{}) {}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatHandler{db: db, engine: engine, timeout: timeout, broadcast: broadcast, toAgent: toAgent}
}

type chatRequest struct {
	Query     string            `json:"query"`
	History   []models.ChatTurn `json:"history"`
	SessionID string            `json:"session_id"`
}

type chatResponse struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ToolName  string          `json:"tool_name,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Booking   *models.Booking `json:"booking,omitempty"`
}

// Chat answers one visitor message for the agent in the URL. When a
// session_id is supplied the turn is persisted and stored history is used
// unless the request carries its own.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var session *models.ChatSession
	if req.SessionID != "" {
		var err error
		session, err = h.db.GetSession(req.SessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		if session == nil || session.AgentID != agentID {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if req.History == nil {
			stored, err := h.db.RecentTurns(session.ID, 20)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load history")
				return
			}
			req.History = stored
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.engine.Chat(ctx, req.Query, agentID, req.History)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	resp := chatResponse{Type: string(result.Type), Text: result.Text}

	var booking *models.Booking
	if result.Type == chatbot.ResultToolConfirmation && result.ToolRequest != nil {
		booking = h.recordBooking(agentID, result)
		resp.ToolName = result.ToolRequest.Name
		resp.Booking = booking
	}

	if session != nil {
		resp.SessionID = session.ID
		h.persistTurn(session.ID, req.Query, result)
	}

	h.toAgent(agentID, "chat_message", map[string]interface{}{
		"agent_id": agentID,
		"type":     resp.Type,
		"text":     resp.Text,
	})
	if booking != nil {
		h.broadcast("booking_confirmed", booking)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrQueryRequired), errors.Is(err, chatbot.ErrAgentIDRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatbot.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent not found")
	case errors.Is(err, chatbot.ErrEmptyAgent):
		writeError(w, http.StatusUnprocessableEntity, "agent has no usable configuration")
	case errors.Is(err, chatbot.ErrUnknownTool):
		logger.Error("Chat produced unknown tool request: %v", err)
		writeError(w, http.StatusBadGateway, "model requested an unknown tool")
	default:
		logger.Error("Chat generation failed: %v", err)
		writeError(w, http.StatusBadGateway, "generation failed")
	}
}

// recordBooking writes the simulated booking row. The confirmation was
// already produced; a failed insert is logged, not surfaced.
func (h *ChatHandler) recordBooking(agentID string, result *chatbot.Result) *models.Booking {
	call := result.ToolRequest
	guest := ""
	if v, ok := call.Args["guestName"].(string); ok {
		guest = v
	}
	details := "{}"
	if data, err := json.Marshal(call.Args); err == nil {
		details = string(data)
	}
	booking, err := h.db.CreateBooking(agentID, call.Name, guest, details)
	if err != nil {
		logger.Error("Failed to record booking: %v", err)
		return nil
	}
	return booking
}

func (h *ChatHandler) persistTurn(sessionID, query string, result *chatbot.Result) {
	if _, err := h.db.AddMessage(sessionID, "user", query, ""); err != nil {
		logger.Error("Failed to persist user turn: %v", err)
		return
	}
	toolName := ""
	if result.ToolRequest != nil {
		toolName = result.ToolRequest.Name
	}
	if _, err := h.db.AddMessage(sessionID, "model", result.Text, toolName); err != nil {
		logger.Error("Failed to persist model turn: %v", err)
	}
}

// CreateSession opens a persistent transcript for an agent.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	agentID := chi.URLParam(r, "id")

	agent, err := h.db.GetAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	if agent == nil || agent.OwnerID != userID {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	decodeJSON(r, &req)

	session, err := h.db.CreateSession(agentID, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	agentID := chi.URLParam(r, "id")

	agent, err := h.db.GetAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	if agent == nil || agent.OwnerID != userID {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	sessions, err := h.db.ListSessions(agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.db.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	agent, err := h.db.GetAgent(r.Context(), session.AgentID)
	if err != nil || agent == nil || agent.OwnerID != userID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	messages, err := h.db.ListMessages(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.db.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	agent, err := h.db.GetAgent(r.Context(), session.AgentID)
	if err != nil || agent == nil || agent.OwnerID != userID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.db.DeleteSession(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}
