package llm

import "context"

// Echo is the deterministic local-development stand-in for the real
// provider: it never calls the network and answers every request by echoing
// the prompt. It exists only so the server can run without an API key in dev
// mode; the real request path never falls back to it.
type Echo struct{}

func NewEcho() *Echo {
	return &Echo{}
}

func (e *Echo) Generate(_ context.Context, req GenerateRequest) (*Reply, error) {
	return NewReply("FALLBACK-GENERATE: "+req.Prompt, nil), nil
}
