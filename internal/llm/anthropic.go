package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

// Anthropic uses the Messages API.
type Anthropic struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	ok      bool
}

// NewAnthropic builds a provider; an empty apiKey leaves it unconfigured.
// baseURL is optional.
func NewAnthropic(apiKey, model, baseURL string) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// the composer falls back to the next provider instead
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: 60 * time.Second,
		ok:      apiKey != "",
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Configured() bool { return a.ok }

func (a *Anthropic) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if !a.ok {
		return "", ErrNotConfigured
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic API: empty response")
	}
	return b.String(), nil
}
