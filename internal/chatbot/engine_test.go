package chatbot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/davie-sparq/bizot/internal/llm"
	"github.com/davie-sparq/bizot/internal/models"
)

// fakeStore serves a fixed set of agents from memory.
type fakeStore struct {
	agents map[string]*models.Agent
}

func (s *fakeStore) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	return s.agents[id], nil
}

// scriptedGenerator records the request it received and answers with a
// canned reply or error.
type scriptedGenerator struct {
	lastReq GenReq
	reply   *llm.Reply
	err     error
}

type GenReq = llm.GenerateRequest

func (g *scriptedGenerator) Generate(_ context.Context, req llm.GenerateRequest) (*llm.Reply, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return g.reply, nil
}

func testAgent() *models.Agent {
	return &models.Agent{
		ID:                "agent-1",
		Name:              "Aria",
		BusinessName:      "Glow Spa",
		SystemInstruction: "You are {{chatbotName}}, the assistant for {{businessName}}.",
		KnowledgeBase:     []string{"We open at 9am", "We close at 5pm", "Unrelated fact"},
		Services: []models.Service{
			{Name: "Massage", Category: "Spa", Description: "60 minutes"},
		},
		Tools:  []string{"bookAppointment"},
		Status: models.AgentStatusActive,
	}
}

func newTestEngine(agent *models.Agent, gen llm.Generator) *Engine {
	store := &fakeStore{agents: map[string]*models.Agent{}}
	if agent != nil {
		store.agents[agent.ID] = agent
	}
	return NewEngine(store, gen, Options{})
}

func TestChatEndToEnd(t *testing.T) {
	gen := &scriptedGenerator{reply: llm.NewReply("We open at 9am.", nil)}
	engine := newTestEngine(testAgent(), gen)

	result, err := engine.Chat(context.Background(), "what time do you open", "agent-1", nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if result.Type != ResultText || result.Text != "We open at 9am." {
		t.Errorf("result = %+v", result)
	}

	// The assembled prompt carries the relevant chunk, ranked ahead of
	// the unrelated one, and the resolved system instruction.
	if !strings.Contains(gen.lastReq.Prompt, "We open at 9am") {
		t.Errorf("prompt missing matching chunk: %q", gen.lastReq.Prompt)
	}
	if strings.Contains(gen.lastReq.Prompt, "Unrelated fact") {
		t.Errorf("prompt contains zero-score chunk: %q", gen.lastReq.Prompt)
	}
	if gen.lastReq.SystemInstruction != "You are Aria, the assistant for Glow Spa." {
		t.Errorf("system instruction = %q", gen.lastReq.SystemInstruction)
	}
	if !strings.Contains(gen.lastReq.Prompt, "AVAILABLE SERVICES:\n- Massage (Spa): 60 minutes") {
		t.Errorf("prompt missing services block: %q", gen.lastReq.Prompt)
	}
	if !strings.HasSuffix(gen.lastReq.Prompt, "QUESTION: what time do you open") {
		t.Errorf("prompt should end with the question: %q", gen.lastReq.Prompt)
	}
	if len(gen.lastReq.Tools) != 1 || gen.lastReq.Tools[0].Name != "bookAppointment" {
		t.Errorf("tools = %+v", gen.lastReq.Tools)
	}
}

func TestChatHistoryPassedThrough(t *testing.T) {
	gen := &scriptedGenerator{reply: llm.NewReply("ok", nil)}
	engine := newTestEngine(testAgent(), gen)

	history := []models.ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "hello"},
	}
	if _, err := engine.Chat(context.Background(), "question words", "agent-1", history); err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	if len(gen.lastReq.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(gen.lastReq.History))
	}
	if gen.lastReq.History[0] != (llm.Turn{Role: "user", Content: "hi"}) ||
		gen.lastReq.History[1] != (llm.Turn{Role: "model", Content: "hello"}) {
		t.Errorf("history = %+v", gen.lastReq.History)
	}
}

func TestChatToolConfirmation(t *testing.T) {
	call := &llm.ToolCall{
		Name: "bookAppointment",
		Args: map[string]any{
			"serviceName": "Massage", "guestName": "Jo",
			"date": "2024-08-15", "time": "14:30",
		},
	}
	gen := &scriptedGenerator{reply: llm.NewReply("", call)}
	engine := newTestEngine(testAgent(), gen)

	result, err := engine.Chat(context.Background(), "book me a massage", "agent-1", nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if result.Type != ResultToolConfirmation {
		t.Errorf("Type = %q", result.Type)
	}
	if !result.ToolResult.Success {
		t.Error("ToolResult.Success should be true")
	}
}

func TestChatValidation(t *testing.T) {
	gen := &scriptedGenerator{reply: llm.NewReply("ok", nil)}
	engine := newTestEngine(testAgent(), gen)

	if _, err := engine.Chat(context.Background(), "  ", "agent-1", nil); !errors.Is(err, ErrQueryRequired) {
		t.Errorf("blank query: err = %v, want ErrQueryRequired", err)
	}
	if _, err := engine.Chat(context.Background(), "hi", "", nil); !errors.Is(err, ErrAgentIDRequired) {
		t.Errorf("blank agent id: err = %v, want ErrAgentIDRequired", err)
	}
}

func TestChatAgentNotFound(t *testing.T) {
	gen := &scriptedGenerator{reply: llm.NewReply("ok", nil)}
	engine := newTestEngine(nil, gen)

	_, err := engine.Chat(context.Background(), "hi", "missing", nil)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("err = %v, want ErrAgentNotFound", err)
	}
}

func TestChatEmptyAgent(t *testing.T) {
	gen := &scriptedGenerator{reply: llm.NewReply("ok", nil)}
	engine := newTestEngine(&models.Agent{ID: "empty-1"}, gen)

	_, err := engine.Chat(context.Background(), "hi", "empty-1", nil)
	if !errors.Is(err, ErrEmptyAgent) {
		t.Errorf("err = %v, want ErrEmptyAgent", err)
	}
}

func TestChatGeneratorFailurePropagates(t *testing.T) {
	genErr := errors.New("provider unavailable")
	gen := &scriptedGenerator{err: genErr}
	engine := newTestEngine(testAgent(), gen)

	_, err := engine.Chat(context.Background(), "hi there", "agent-1", nil)
	if !errors.Is(err, genErr) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
}

func TestChatDefaultInstruction(t *testing.T) {
	agent := testAgent()
	agent.SystemInstruction = ""
	gen := &scriptedGenerator{reply: llm.NewReply("ok", nil)}
	engine := newTestEngine(agent, gen)

	if _, err := engine.Chat(context.Background(), "open hours", agent.ID, nil); err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if gen.lastReq.SystemInstruction != "You are a helpful assistant." {
		t.Errorf("system instruction = %q", gen.lastReq.SystemInstruction)
	}
}
