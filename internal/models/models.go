package models

import "time"

// Agent is a configured chatbot persona owned by a business account.
type Agent struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Name              string    `json:"name"`
	BusinessName      string    `json:"business_name"`
	SystemInstruction string    `json:"system_instruction"`
	KnowledgeBase     []string  `json:"knowledge_base"`
	Services          []Service `json:"services"`
	Tools             []string  `json:"tools"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	AgentStatusDraft  = "draft"
	AgentStatusActive = "active"
)

// IsEmpty reports whether the agent record carries no usable content.
// An empty record is fatal for a chat request, distinct from the agent
// not existing at all.
func (a *Agent) IsEmpty() bool {
	return a.Name == "" && a.SystemInstruction == "" && len(a.KnowledgeBase) == 0
}

// ConfirmedServices returns the services shown to the model. AI-suggested
// entries the owner has not confirmed yet are filtered out.
func (a *Agent) ConfirmedServices() []Service {
	confirmed := make([]Service, 0, len(a.Services))
	for _, s := range a.Services {
		if s.IsSuggestion {
			continue
		}
		confirmed = append(confirmed, s)
	}
	return confirmed
}

// Service is one entry of an agent's service catalog.
type Service struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	IsSuggestion bool   `json:"is_suggestion"`
}

// ChatTurn is one caller-supplied history entry. History is passed through
// the pipeline unchanged; there is no canonical server-side transcript.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is the simulated record written after a tool confirmation. The
// real-world side effect is never performed; this row exists so the owner
// dashboard can list what the chatbot confirmed.
type Booking struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	ToolName  string    `json:"tool_name"`
	GuestName string    `json:"guest_name"`
	Details   string    `json:"details"` // JSON of the raw tool arguments
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Target    string    `json:"target"`
	TargetID  string    `json:"target_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
