// Package genai drafts short custom mission messages with the OpenAI API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults for drafting requests.
const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultTemperature = 0.9
	DefaultMaxTokens   = 120
	// EnvAPIKey is read when WithAPIKey is not given.
	EnvAPIKey = "OPENAI_API_KEY"
)

var (
	ErrNoAPIKey          = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

const draftSystemPrompt = `You write the secret message inside a playful spy-themed greeting.
Reply with one or two short sentences only, no quotes, no emoji, no sign-off.
The receiver reads it after a mission briefing and then chooses to accept or decline.`

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completions adapts the SDK service to chatService.
type completions struct {
	svc *openai.ChatCompletionService
}

func (c completions) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := c.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
	DebugMode   bool
	StateDir    string
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithDebug writes every request and response as JSON under <stateDir>/debug.
func WithDebug(stateDir string) Option {
	return func(o *Opts) {
		o.DebugMode = true
		o.StateDir = stateDir
	}
}

// Client wraps the OpenAI chat completion service for drafting messages.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int64
	debugMode   bool
	stateDir    string
}

// NewClient creates a client. The key falls back to OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel, Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:        completions{svc: &cli.Chat.Completions},
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		debugMode:   cfg.DebugMode,
		stateDir:    cfg.StateDir,
	}, nil
}

// GeneratePromptWithContext returns the first completion for a system and user prompt.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxTokens),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.writeDebug("GeneratePromptWithContext", params, resp)

	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// DraftMessage asks the model for a custom message that fits the mission's tone.
// The result is normalized the way the sender form normalizes typed text.
func (c *Client) DraftMessage(ctx context.Context, p models.MissionParameters, hint string) (string, error) {
	p = p.WithDefaults()
	system := draftSystemPrompt + tone.BuildToneGuide(p.Tone)

	var user strings.Builder
	fmt.Fprintf(&user, "Sender codename: %s\nReceiver codename: %s\n", p.From, p.To)
	if hint = strings.TrimSpace(hint); hint != "" {
		fmt.Fprintf(&user, "What the sender wants to say: %s\n", hint)
	}

	out, err := c.GeneratePromptWithContext(ctx, system, user.String())
	if err != nil {
		slog.Warn("Client.DraftMessage: drafting failed", "error", err)
		return "", err
	}
	return cleanDraft(out), nil
}

// cleanDraft flattens, unquotes, upper-cases and bounds a drafted message.
func cleanDraft(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`“”")
	s = strings.ToUpper(strings.TrimSpace(s))
	if r := []rune(s); len(r) > models.MaxMessageLength {
		s = string(r[:models.MaxMessageLength])
	}
	return s
}

// writeDebug records a request and response pair when debug mode is on.
func (c *Client) writeDebug(method string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion) {
	if !c.debugMode || c.stateDir == "" {
		return
	}
	dir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Debug("Client.writeDebug: mkdir failed", "error", err)
		return
	}

	now := time.Now()
	entry := map[string]interface{}{
		"timestamp": now.Format(time.RFC3339Nano),
		"method":    method,
		"model":     c.model,
		"params":    params,
		"response":  resp,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Debug("Client.writeDebug: marshal failed", "error", err)
		return
	}
	name := fmt.Sprintf("genai_%s_%d.json", method, now.UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		slog.Debug("Client.writeDebug: write failed", "error", err)
	}
}
