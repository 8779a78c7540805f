package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the Google Generative Language API (generateContent).
// It performs no retries: a failed call surfaces to the caller unchanged.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientOption adjusts a Client at construction.
type ClientOption func(*Client)

// WithTimeout sets the per-request HTTP timeout. A context deadline supplied
// by the caller still applies on top of it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Wire types for the generateContent endpoint.

type wirePart struct {
	Text         string            `json:"text,omitempty"`
	FunctionCall *wireFunctionCall `json:"functionCall,omitempty"`
}

type wireFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireToolBlock struct {
	FunctionDeclarations []ToolDecl `json:"function_declarations"`
}

type wireRequest struct {
	SystemInstruction *wireContent     `json:"system_instruction,omitempty"`
	Contents          []wireContent    `json:"contents"`
	Tools             []wireToolBlock  `json:"tools,omitempty"`
	GenerationConfig  wireGenConfig    `json:"generationConfig"`
}

type wireGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type wireResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
}

// prepareRequest builds an authenticated POST to the generateContent endpoint.
func (c *Client) prepareRequest(ctx context.Context, model string, reqBody wireRequest) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API client not configured")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	return req, nil
}

// Generate performs one model call. History turns are sent ahead of the
// prompt in the provider's content shape (role plus text parts), preserved
// exactly as supplied.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	contents := make([]wireContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, wireContent{
			Role:  turn.Role,
			Parts: []wirePart{{Text: turn.Content}},
		})
	}
	contents = append(contents, wireContent{
		Role:  "user",
		Parts: []wirePart{{Text: req.Prompt}},
	})

	body := wireRequest{
		Contents:         contents,
		GenerationConfig: wireGenConfig{Temperature: req.Temperature},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.SystemInstruction}}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []wireToolBlock{{FunctionDeclarations: req.Tools}}
	}

	httpReq, err := c.prepareRequest(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	var result wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("API returned no candidates")
	}

	var text string
	var toolCall *ToolCall
	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil && toolCall == nil {
			toolCall = &ToolCall{Name: part.FunctionCall.Name, Args: part.FunctionCall.Args}
			continue
		}
		text += part.Text
	}

	return NewReply(text, toolCall), nil
}
