package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/logger"
	genai "google.golang.org/genai"
)

// GoogleGenAIClient implements the Client interface using the official Google GenAI SDK.
type GoogleGenAIClient struct {
	modelName string
	client    *genai.Client
}

// NewGoogleAIClient creates a Google GenAI client for the provided model.
func NewGoogleAIClient(ctx context.Context, apiKey, modelName string) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google genai client requires an API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}

	return &GoogleGenAIClient{
		modelName: normalizeGoogleModelName(modelName),
		client:    client,
	}, nil
}

func (c *GoogleGenAIClient) GetModelName() string {
	return c.modelName
}

func (c *GoogleGenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CompleteWithRequest(ctx, &CompletionRequest{
		Messages: []*Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *GoogleGenAIClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("google genai completion request cannot be nil")
	}

	contents := convertMessagesToGenAI(req.Messages, req.Attachments)
	if len(contents) == 0 {
		return &CompletionResponse{}, nil
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, buildGenAIGenerationConfig(req))
	if err != nil {
		return nil, fmt.Errorf("google genai completion failed: %w", err)
	}

	return buildCompletionResponse(resp), nil
}

func buildCompletionResponse(resp *genai.GenerateContentResponse) *CompletionResponse {
	if resp == nil || len(resp.Candidates) == 0 {
		stop := ""
		if resp != nil && resp.PromptFeedback != nil {
			stop = string(resp.PromptFeedback.BlockReason)
		}
		return &CompletionResponse{StopReason: stop}
	}

	candidate := resp.Candidates[0]
	stopReason := string(candidate.FinishReason)
	if stopReason == "" {
		stopReason = candidate.FinishMessage
	}

	out := &CompletionResponse{
		Content:    collectTextFromContent(candidate.Content),
		StopReason: stopReason,
	}
	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out
}

func collectTextFromContent(content *genai.Content) string {
	if content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// convertMessagesToGenAI maps messages to GenAI contents. System messages are
// sent as user content; attachments are added to the last user content.
func convertMessagesToGenAI(messages []*Message, attachments []*Attachment) []*genai.Content {
	attachAt := lastUserIndex(messages)

	contents := make([]*genai.Content, 0, len(messages))
	for i, msg := range messages {
		if msg == nil {
			continue
		}

		parts := make([]*genai.Part, 0, 1+len(attachments))
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}
		if i == attachAt {
			for _, att := range attachments {
				if att == nil || len(att.Data) == 0 {
					continue
				}
				parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
			}
		}
		if len(parts) == 0 {
			continue
		}

		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	if attachAt < 0 && len(attachments) > 0 {
		logger.Warn("GoogleGenAIClient: dropping %d attachments, no user message to attach to", len(attachments))
	}
	return contents
}

func buildGenAIGenerationConfig(req *CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}

	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	return cfg
}

func normalizeGoogleModelName(modelName string) string {
	trimmed := strings.TrimSpace(modelName)
	if trimmed == "" {
		trimmed = consts.DefaultModel
	}

	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "models/") || strings.HasPrefix(lowered, "publishers/") {
		return trimmed
	}

	return "models/" + trimmed
}
