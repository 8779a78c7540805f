package chatbot

import (
	"fmt"
	"strconv"

	"github.com/davie-sparq/bizot/internal/llm"
)

// ResultType is the terminal state of one interpreted model reply.
type ResultType string

const (
	ResultText             ResultType = "text"
	ResultToolConfirmation ResultType = "tool_confirmation"
)

// ToolOutcome is the synthesized stand-in for an executed booking. The real
// side effect never happens here; Success is always true.
type ToolOutcome struct {
	Success bool `json:"success"`
}

// Result is the structured outcome of one chat turn.
type Result struct {
	Type        ResultType    `json:"type"`
	Text        string        `json:"text"`
	ToolRequest *llm.ToolCall `json:"tool_request,omitempty"`
	ToolResult  *ToolOutcome  `json:"tool_result,omitempty"`
}

// Interpret decides whether a model reply is a plain answer or a tool
// invocation, and for tool invocations synthesizes the user-facing
// confirmation without executing the booking.
//
// An unregistered tool name is a soft fail by default — the confirmation
// text is empty — and a hard ErrUnknownTool when strict is set.
func Interpret(reply *llm.Reply, strict bool) (*Result, error) {
	toolRequest := reply.ToolRequest()
	if toolRequest == nil {
		return &Result{Type: ResultText, Text: reply.Text()}, nil
	}

	kind, ok := parseToolKind(toolRequest.Name)
	if !ok && strict {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, toolRequest.Name)
	}

	var confirmation string
	if ok {
		confirmation = confirmationText(kind, toolRequest.Args)
	}

	return &Result{
		Type:        ResultToolConfirmation,
		Text:        confirmation,
		ToolRequest: toolRequest,
		ToolResult:  &ToolOutcome{Success: true},
	}, nil
}

// appointmentArgs is the typed argument record for bookAppointment. Missing
// keys render as empty strings; argument presence is not validated.
type appointmentArgs struct {
	ServiceName string
	GuestName   string
	Date        string
	Time        string
}

func (a appointmentArgs) confirmation() string {
	return fmt.Sprintf("Your appointment for a %s for %s on %s at %s has been confirmed.",
		a.ServiceName, a.GuestName, a.Date, a.Time)
}

// reservationArgs is the typed argument record for makeRestaurantReservation.
type reservationArgs struct {
	NumberOfPeople string
	GuestName      string
	Date           string
	Time           string
}

func (r reservationArgs) confirmation() string {
	return fmt.Sprintf("Your restaurant reservation for %s people under the name %s on %s at %s has been confirmed.",
		r.NumberOfPeople, r.GuestName, r.Date, r.Time)
}

func confirmationText(kind toolKind, args map[string]any) string {
	switch kind {
	case toolBookAppointment:
		return appointmentArgs{
			ServiceName: argString(args, "serviceName"),
			GuestName:   argString(args, "guestName"),
			Date:        argString(args, "date"),
			Time:        argString(args, "time"),
		}.confirmation()
	case toolMakeRestaurantReservation:
		return reservationArgs{
			NumberOfPeople: argString(args, "numberOfPeople"),
			GuestName:      argString(args, "guestName"),
			Date:           argString(args, "date"),
			Time:           argString(args, "time"),
		}.confirmation()
	}
	return ""
}

// argString renders a tool argument for template substitution. JSON numbers
// arrive as float64 and print without a trailing ".0"; anything missing is
// an empty string.
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
