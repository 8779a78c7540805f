package chatbot

import (
	"errors"
	"testing"

	"github.com/davie-sparq/bizot/internal/llm"
)

func TestInterpretPlainText(t *testing.T) {
	result, err := Interpret(llm.NewReply("Hello", nil), false)
	if err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	if result.Type != ResultText {
		t.Errorf("Type = %q, want %q", result.Type, ResultText)
	}
	if result.Text != "Hello" {
		t.Errorf("Text = %q, want %q", result.Text, "Hello")
	}
	if result.ToolRequest != nil || result.ToolResult != nil {
		t.Error("text result should carry no tool fields")
	}
}

func TestInterpretBookAppointment(t *testing.T) {
	call := &llm.ToolCall{
		Name: "bookAppointment",
		Args: map[string]any{
			"serviceName": "Massage",
			"guestName":   "Jo",
			"date":        "2024-08-15",
			"time":        "14:30",
		},
	}
	result, err := Interpret(llm.NewReply("", call), false)
	if err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	if result.Type != ResultToolConfirmation {
		t.Errorf("Type = %q, want %q", result.Type, ResultToolConfirmation)
	}
	want := "Your appointment for a Massage for Jo on 2024-08-15 at 14:30 has been confirmed."
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
	if result.ToolResult == nil || !result.ToolResult.Success {
		t.Error("ToolResult.Success should be true")
	}
	if result.ToolRequest != call {
		t.Error("ToolRequest should be passed through")
	}
}

func TestInterpretRestaurantReservation(t *testing.T) {
	call := &llm.ToolCall{
		Name: "makeRestaurantReservation",
		Args: map[string]any{
			"numberOfPeople": float64(4), // JSON numbers decode as float64
			"guestName":      "Smith",
			"date":           "2024-08-15",
			"time":           "19:00",
		},
	}
	result, err := Interpret(llm.NewReply("", call), false)
	if err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	want := "Your restaurant reservation for 4 people under the name Smith on 2024-08-15 at 19:00 has been confirmed."
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
}

func TestInterpretMissingArgsRenderEmpty(t *testing.T) {
	call := &llm.ToolCall{
		Name: "bookAppointment",
		Args: map[string]any{"serviceName": "Massage"},
	}
	result, err := Interpret(llm.NewReply("", call), false)
	if err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	want := "Your appointment for a Massage for  on  at  has been confirmed."
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
}

func TestInterpretUnknownToolSoftFail(t *testing.T) {
	call := &llm.ToolCall{Name: "cancelBooking", Args: map[string]any{}}
	result, err := Interpret(llm.NewReply("", call), false)
	if err != nil {
		t.Fatalf("Interpret() error: %v", err)
	}
	if result.Type != ResultToolConfirmation {
		t.Errorf("Type = %q, want %q", result.Type, ResultToolConfirmation)
	}
	if result.Text != "" {
		t.Errorf("unknown tool confirmation should be empty, got %q", result.Text)
	}
	if result.ToolResult == nil || !result.ToolResult.Success {
		t.Error("ToolResult.Success should still be true")
	}
}

func TestInterpretUnknownToolStrict(t *testing.T) {
	call := &llm.ToolCall{Name: "cancelBooking", Args: map[string]any{}}
	_, err := Interpret(llm.NewReply("", call), true)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
}

func TestArgString(t *testing.T) {
	args := map[string]any{
		"str":    "value",
		"num":    float64(4),
		"frac":   float64(2.5),
		"int":    7,
		"flag":   true,
		"absent": nil,
	}
	tests := []struct {
		key  string
		want string
	}{
		{"str", "value"},
		{"num", "4"},
		{"frac", "2.5"},
		{"int", "7"},
		{"flag", "true"},
		{"absent", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := argString(args, tt.key); got != tt.want {
			t.Errorf("argString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
