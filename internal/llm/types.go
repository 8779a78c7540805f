package llm

import (
	"context"
	"encoding/json"
)

// Generator is the LLM-calling capability injected into the chat pipeline.
// The real provider client and the deterministic local stand-in both satisfy
// it; which one runs is decided once at construction, never probed at
// request time.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Reply, error)
}

// GenerateRequest carries everything for a single model call.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	History           []Turn
	Tools             []ToolDecl
	Temperature       float64
}

// Turn is one prior conversation entry, role "user" or "model".
type Turn struct {
	Role    string
	Content string
}

// ToolDecl declares a callable function to the model: a name, a description,
// and a JSON-schema description of its parameters.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a structured function-invocation request emitted by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Reply is the model's answer to one Generate call.
type Reply struct {
	text     string
	toolCall *ToolCall
}

// NewReply builds a Reply; toolCall may be nil for plain text answers.
func NewReply(text string, toolCall *ToolCall) *Reply {
	return &Reply{text: text, toolCall: toolCall}
}

// Text returns the reply's text content, empty when the model chose to call
// a tool instead.
func (r *Reply) Text() string {
	return r.text
}

// ToolRequest returns the tool invocation the model asked for, or nil when
// the reply is plain text.
func (r *Reply) ToolRequest() *ToolCall {
	return r.toolCall
}
