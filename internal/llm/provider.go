// Package llm calls hosted language models and turns their replies into
// JSON documents.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by providers without an API key.
var ErrNotConfigured = errors.New("llm: provider not configured")

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a bare JSON object where supported.
	JSON bool
}

// Provider completes a single user prompt.
type Provider interface {
	Name() string
	Configured() bool
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

const defaultMaxTokens = 4096
