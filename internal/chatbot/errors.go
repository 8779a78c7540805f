package chatbot

import "errors"

var (
	ErrQueryRequired   = errors.New("query is required")
	ErrAgentIDRequired = errors.New("agent id is required")
	ErrAgentNotFound   = errors.New("agent not found")
	ErrEmptyAgent      = errors.New("agent record is empty")
	ErrUnknownTool     = errors.New("unknown tool requested")
)
