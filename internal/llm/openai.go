package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const (
	DefaultOpenAIModel   = "gpt-4o"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	endpoint string
	model    string
	apiKey   string
	http     *upstream.Client
}

func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:    model,
		apiKey:   apiKey,
		http:     upstream.New("openai", upstream.Options{Timeout: 60 * time.Second}),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Configured() bool { return o.apiKey != "" }

func (o *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}
	req := chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	if err := o.http.PostJSON(ctx, o.endpoint, req, headers, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai API: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
