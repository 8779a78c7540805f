package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/davie-sparq/bizot/internal/chatbot"
	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/middleware"
	"github.com/davie-sparq/bizot/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AgentsHandler struct {
	db        *database.DB
	broadcast func(msgType string, payload interface{})
}

func NewAgentsHandler(db *database.DB, broadcast func(string, interface{})) *AgentsHandler {
	if broadcast == nil {
		broadcast = func(string, interface{}) {}
	}
	return &AgentsHandler{db: db, broadcast: broadcast}
}

type agentRequest struct {
	Name              string           `json:"name"`
	BusinessName      string           `json:"business_name"`
	SystemInstruction string           `json:"system_instruction"`
	KnowledgeBase     []string         `json:"knowledge_base"`
	Services          []models.Service `json:"services"`
	Tools             []string         `json:"tools"`
	Status            string           `json:"status"`
}

// validateAgentRequest rejects unknown tool names and bad status values at
// save time, so a chat request never trips over a misconfigured agent.
func validateAgentRequest(req *agentRequest) string {
	if _, err := chatbot.Declarations(req.Tools); err != nil {
		if errors.Is(err, chatbot.ErrUnknownTool) {
			return err.Error()
		}
		return "invalid tools"
	}
	switch req.Status {
	case "", models.AgentStatusDraft, models.AgentStatusActive:
	default:
		return "status must be draft or active"
	}
	for i := range req.Services {
		if strings.TrimSpace(req.Services[i].Name) == "" {
			return "service name is required"
		}
		if req.Services[i].ID == "" {
			req.Services[i].ID = uuid.New().String()
		}
	}
	return ""
}

func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateAgentRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	agent := &models.Agent{
		OwnerID:           userID,
		Name:              strings.TrimSpace(req.Name),
		BusinessName:      strings.TrimSpace(req.BusinessName),
		SystemInstruction: req.SystemInstruction,
		KnowledgeBase:     req.KnowledgeBase,
		Services:          req.Services,
		Tools:             req.Tools,
		Status:            req.Status,
	}
	if err := h.db.CreateAgent(agent); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	h.db.LogAudit(userID, "agent_created", "agents", "agent", agent.ID, "Created agent "+agent.Name)
	h.broadcast("agent_created", agent)
	writeJSON(w, http.StatusCreated, agent)
}

func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	agents, err := h.db.ListAgents(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// loadOwned fetches the agent and enforces ownership. Both a missing row
// and someone else's agent read as 404 so IDs are not probeable.
func (h *AgentsHandler) loadOwned(w http.ResponseWriter, r *http.Request) *models.Agent {
	userID := middleware.GetUserID(r.Context())
	agent, err := h.db.GetAgent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return nil
	}
	if agent == nil || agent.OwnerID != userID {
		writeError(w, http.StatusNotFound, "agent not found")
		return nil
	}
	return agent
}

func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent := h.loadOwned(w, r)
	if agent == nil {
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (h *AgentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent := h.loadOwned(w, r)
	if agent == nil {
		return
	}

	var req agentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateAgentRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	agent.Name = strings.TrimSpace(req.Name)
	agent.BusinessName = strings.TrimSpace(req.BusinessName)
	agent.SystemInstruction = req.SystemInstruction
	agent.KnowledgeBase = req.KnowledgeBase
	agent.Services = req.Services
	agent.Tools = req.Tools
	if req.Status != "" {
		agent.Status = req.Status
	}

	if err := h.db.UpdateAgent(agent); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update agent")
		return
	}

	userID := middleware.GetUserID(r.Context())
	h.db.LogAudit(userID, "agent_updated", "agents", "agent", agent.ID, "Updated agent "+agent.Name)
	h.broadcast("agent_updated", agent)
	writeJSON(w, http.StatusOK, agent)
}

func (h *AgentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agent := h.loadOwned(w, r)
	if agent == nil {
		return
	}

	if err := h.db.DeleteAgent(agent.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete agent")
		return
	}

	userID := middleware.GetUserID(r.Context())
	h.db.LogAudit(userID, "agent_deleted", "agents", "agent", agent.ID, "Deleted agent "+agent.Name)
	h.broadcast("agent_deleted", map[string]string{"id": agent.ID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "agent deleted"})
}

// AppendKnowledge adds chunks to the agent's knowledge base without
// resending the whole record.
func (h *AgentsHandler) AppendKnowledge(w http.ResponseWriter, r *http.Request) {
	agent := h.loadOwned(w, r)
	if agent == nil {
		return
	}

	var req struct {
		Chunks []string `json:"chunks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "chunks required")
		return
	}

	updated, err := h.db.AppendKnowledge(agent.ID, req.Chunks)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to append knowledge")
		return
	}

	userID := middleware.GetUserID(r.Context())
	h.db.LogAudit(userID, "knowledge_appended", "agents", "agent", agent.ID, "")
	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	agent := h.loadOwned(w, r)
	if agent == nil {
		return
	}

	bookings, err := h.db.ListBookings(agent.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Tools lists the names an agent's tools field may contain.
func (h *AgentsHandler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tools": chatbot.ToolNames()})
}
