package llm

import (
	"testing"

	genai "google.golang.org/genai"
)

func TestConvertMessagesToGenAIAttachesImagesToLastUserMessage(t *testing.T) {
	messages := []*Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "Bug Report: crash"},
		{Role: RoleAssistant, Content: "[]"},
	}
	attachments := []*Attachment{{Name: "shot.png", MIMEType: "image/png", Data: []byte{0x89, 0x50}}}

	contents := convertMessagesToGenAI(messages, attachments)
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	user := contents[1]
	if user.Role != string(genai.RoleUser) {
		t.Fatalf("expected user role, got %q", user.Role)
	}
	if len(user.Parts) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(user.Parts))
	}
	if user.Parts[1].InlineData == nil || user.Parts[1].InlineData.MIMEType != "image/png" {
		t.Fatalf("expected inline image part, got %+v", user.Parts[1])
	}
	if contents[2].Role != string(genai.RoleModel) {
		t.Fatalf("expected assistant mapped to model role, got %q", contents[2].Role)
	}
}

func TestConvertMessagesToGenAISkipsEmptyMessages(t *testing.T) {
	contents := convertMessagesToGenAI([]*Message{nil, {Role: RoleUser}}, nil)
	if len(contents) != 0 {
		t.Fatalf("expected no contents, got %d", len(contents))
	}
}

func TestBuildGenAIGenerationConfig(t *testing.T) {
	cfg := buildGenAIGenerationConfig(&CompletionRequest{Temperature: 0.3, MaxTokens: 128})
	if cfg.Temperature == nil || *cfg.Temperature != float32(0.3) {
		t.Fatalf("expected temperature 0.3, got %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 128 {
		t.Fatalf("expected max output tokens 128, got %d", cfg.MaxOutputTokens)
	}
}

func TestNormalizeGoogleModelName(t *testing.T) {
	cases := map[string]string{
		"":                        "models/gemini-2.5-flash",
		"gemini-2.5-pro":          "models/gemini-2.5-pro",
		"models/gemini-2.5-flash": "models/gemini-2.5-flash",
	}
	for in, want := range cases {
		if got := normalizeGoogleModelName(in); got != want {
			t.Fatalf("normalizeGoogleModelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCompletionResponseCollectsText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts([]*genai.Part{
				{Text: "thinking", Thought: true},
				genai.NewPartFromText(`[{"action":"back"}]`),
			}, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}

	out := buildCompletionResponse(resp)
	if out.Content != `[{"action":"back"}]` {
		t.Fatalf("unexpected content %q", out.Content)
	}
	if out.StopReason != string(genai.FinishReasonStop) {
		t.Fatalf("unexpected stop reason %q", out.StopReason)
	}
}
