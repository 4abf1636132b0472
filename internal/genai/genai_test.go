package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func reply(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGeneratePrompt_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: reply("Hello World")}, model: "test-model"}
	out, err := client.GeneratePromptWithContext(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
}

func TestGeneratePrompt_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GeneratePromptWithContext(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGeneratePrompt_NoChoices(t *testing.T) {
	mockResp := openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{}}
	client := &Client{chat: &mockChatService{resp: mockResp}}
	_, err := client.GeneratePromptWithContext(context.Background(), "sys", "usr")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	_, err := NewClient()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("test-model"), WithTemperature(0.2))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.model != "test-model" || cli.temperature != 0.2 || cli.maxTokens != DefaultMaxTokens {
		t.Errorf("options not applied: %+v", cli)
	}
}

func TestDraftMessage(t *testing.T) {
	mock := &mockChatService{resp: reply("  \"Meet me at the\n rooftop at dusk.\"  ")}
	client := &Client{chat: mock, model: "test-model"}

	p := models.MissionParameters{From: "FALCON", To: "NIGHTHAWK", Tone: models.ToneRomantic}
	got, err := client.DraftMessage(context.Background(), p, "dinner friday")
	if err != nil {
		t.Fatalf("DraftMessage: %v", err)
	}
	if got != "MEET ME AT THE ROOFTOP AT DUSK." {
		t.Errorf("unexpected draft %q", got)
	}
	if len(mock.params.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(mock.params.Messages))
	}
}

func TestDraftMessageError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("rate limited")}}
	if _, err := client.DraftMessage(context.Background(), models.MissionParameters{To: "X"}, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestCleanDraftTruncates(t *testing.T) {
	long := strings.Repeat("a", models.MaxMessageLength+50)
	if got := cleanDraft(long); len(got) != models.MaxMessageLength {
		t.Errorf("expected %d runes, got %d", models.MaxMessageLength, len(got))
	}
}
