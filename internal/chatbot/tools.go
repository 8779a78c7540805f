package chatbot

import (
	"encoding/json"
	"fmt"

	"github.com/davie-sparq/bizot/internal/llm"
)

// toolKind is the closed set of booking tools the chatbot recognizes. The
// registry is fixed: the model may only be offered these two declarations,
// and anything else it asks for is the Unknown case.
type toolKind string

const (
	toolBookAppointment           toolKind = "bookAppointment"
	toolMakeRestaurantReservation toolKind = "makeRestaurantReservation"
)

func parseToolKind(name string) (toolKind, bool) {
	switch toolKind(name) {
	case toolBookAppointment, toolMakeRestaurantReservation:
		return toolKind(name), true
	}
	return "", false
}

// ToolNames lists every registered tool name, for save-time validation and
// agent defaults.
func ToolNames() []string {
	return []string{string(toolBookAppointment), string(toolMakeRestaurantReservation)}
}

// Declarations resolves enabled tool names to the declarations passed to the
// model. Unrecognized names are rejected here — at configuration load — so a
// bad name never reaches a model call.
func Declarations(names []string) ([]llm.ToolDecl, error) {
	decls := make([]llm.ToolDecl, 0, len(names))
	for _, name := range names {
		kind, ok := parseToolKind(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
		}
		decls = append(decls, toolDecls[kind])
	}
	return decls, nil
}

var toolDecls = map[toolKind]llm.ToolDecl{
	toolBookAppointment: {
		Name:        string(toolBookAppointment),
		Description: "Books a generic appointment for a client or guest. Use this for scheduling services like consultations, spa treatments, classes, or check-ups.",
		Parameters: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"serviceName": map[string]any{"type": "string", "description": `The specific name of the service, class, or type of appointment to book, e.g., "Haircut & Style", "Initial Consultation", "60-minute Massage".`},
				"date":        map[string]any{"type": "string", "description": `The desired date for the appointment, e.g., "2024-08-15".`},
				"time":        map[string]any{"type": "string", "description": `The desired time for the appointment, e.g., "14:30".`},
				"guestName":   map[string]any{"type": "string", "description": "The name of the guest or client for whom the appointment is being booked."},
			},
			"required": []string{"serviceName", "date", "time", "guestName"},
		}),
	},
	toolMakeRestaurantReservation: {
		Name:        string(toolMakeRestaurantReservation),
		Description: "Makes a reservation at a hotel restaurant. Use this when a user explicitly asks to book a table.",
		Parameters: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"numberOfPeople": map[string]any{"type": "number", "description": "The number of people in the party for the reservation."},
				"date":           map[string]any{"type": "string", "description": `The desired date for the reservation, e.g., "2024-08-15".`},
				"time":           map[string]any{"type": "string", "description": `The desired time for the reservation, e.g., "19:00".`},
				"guestName":      map[string]any{"type": "string", "description": "The name under which to make the reservation."},
			},
			"required": []string{"numberOfPeople", "date", "time", "guestName"},
		}),
	},
}

func mustSchema(schema map[string]any) json.RawMessage {
	data, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return data
}
