package llm

import (
	"context"
)

// Message roles understood by every client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is binary content sent alongside the last user message, such as
// a screenshot referenced by a bug report.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Messages     []*Message    `json:"messages"`
	Attachments  []*Attachment `json:"attachments,omitempty"`
	Temperature  float64       `json:"temperature"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *Usage `json:"usage,omitempty"`
}

// Usage reports provider token accounting when available.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Client is the interface for LLM clients
type Client interface {
	// CompleteWithRequest sends a completion request and returns the response
	CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// Complete is a simplified version for single prompt
	Complete(ctx context.Context, prompt string) (string, error)
	// GetModelName returns the model name
	GetModelName() string
}

func lastUserIndex(messages []*Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i] != nil && messages[i].Role != RoleAssistant && messages[i].Role != RoleSystem {
			return i
		}
	}
	return -1
}
