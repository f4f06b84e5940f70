package docgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// systemPrompt frames every generation call. Keeping it in one place
// makes the documentation voice consistent across objects, clusters
// and overviews.
const systemPrompt = `You are a senior ABAP developer writing reference documentation for a legacy SAP system.
Describe what the code does in plain language for developers who have never seen it.
Be factual: only state what the provided source and dependency summaries support.
Answer in Markdown without headings, at most three short paragraphs.`

// OpenAIConfig configures the OpenAI-backed generator.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Required.
	APIKey string

	// Model selects the chat model (default: DefaultModel).
	Model string

	// BaseURL overrides the API endpoint, for Azure OpenAI or other
	// compatible gateways. Empty uses the public API.
	BaseURL string

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// OpenAI generates summaries through the chat completions API.
//
// The zero value is not usable - use NewOpenAI.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a generator from the given config.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("docgen: OpenAI API key is required")
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Client != nil {
		c.HTTPClient = cfg.Client
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(c), model: model}, nil
}

// Model returns the configured chat model.
func (o *OpenAI) Model() string { return o.model }

// Generate sends one prompt and returns the model's reply.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return text, nil
}
