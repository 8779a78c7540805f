package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/davie-sparq/bizot/internal/llm"
	"github.com/davie-sparq/bizot/internal/models"
	"github.com/davie-sparq/bizot/internal/prompt"
	"github.com/davie-sparq/bizot/internal/retrieval"
)

// defaultInstruction is used when an agent has no system instruction of its own.
const defaultInstruction = "You are a helpful assistant."

// AgentStore looks up agent records. GetAgent returns (nil, nil) when the
// agent does not exist; the engine turns that into ErrAgentNotFound.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
}

// Options carries the tunable knobs of the chat pipeline. Zero values fall
// back to sensible defaults at construction.
type Options struct {
	Model          string
	Temperature    float64
	RetrievalLimit int
	// StrictTools upgrades an unknown tool call from an empty confirmation
	// to a hard error.
	StrictTools bool
}

// Engine runs the chat pipeline: retrieve, assemble, call the model,
// interpret. It holds no per-request state, so one Engine serves concurrent
// requests without locks.
type Engine struct {
	store AgentStore
	gen   llm.Generator
	opts  Options
}

func NewEngine(store AgentStore, gen llm.Generator, opts Options) *Engine {
	if opts.Model == "" {
		opts.Model = "gemini-pro"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = retrieval.DefaultLimit
	}
	return &Engine{store: store, gen: gen, opts: opts}
}

// Chat answers one query against the named agent. History is passed through
// to the model unchanged. The single suspension point is the generator call,
// bounded by the caller's context; a generator failure propagates unchanged
// with no retry and no fallback text.
func (e *Engine) Chat(ctx context.Context, query, agentID string, history []models.ChatTurn) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}
	if agentID == "" {
		return nil, ErrAgentIDRequired
	}

	agent, err := e.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}
	if agent == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if agent.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAgent, agentID)
	}

	chunks := retrieval.Rank(query, agent.KnowledgeBase, e.opts.RetrievalLimit)

	instruction := agent.SystemInstruction
	if instruction == "" {
		instruction = defaultInstruction
	}
	placeholders := map[string]string{
		"chatbotName":  agent.Name,
		"businessName": agent.BusinessName,
	}
	systemInstruction, body := prompt.Assemble(query, instruction, placeholders, agent.Services, chunks)

	tools, err := Declarations(agent.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s tool config: %w", agentID, err)
	}

	turns := make([]llm.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, llm.Turn{Role: h.Role, Content: h.Content})
	}

	reply, err := e.gen.Generate(ctx, llm.GenerateRequest{
		Model:             e.opts.Model,
		SystemInstruction: systemInstruction,
		Prompt:            body,
		History:           turns,
		Tools:             tools,
		Temperature:       e.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	return Interpret(reply, e.opts.StrictTools)
}
