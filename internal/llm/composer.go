package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/jsonx"
	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

// Composer asks each provider in turn and parses the first reply.
type Composer struct {
	providers []Provider
	opts      Options
	logger    *slog.Logger
}

func NewComposer(logger *slog.Logger, opts Options, providers ...Provider) *Composer {
	return &Composer{providers: providers, opts: opts, logger: logger}
}

// Configured reports whether any provider has credentials.
func (c *Composer) Configured() bool {
	for _, p := range c.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// Compose sends prompt to the first provider that answers. The reply must
// contain a JSON object; a reply without one is a *jsonx.ParseError and is
// not retried on the next provider.
func (c *Composer) Compose(ctx context.Context, prompt string) (jsonx.Document, error) {
	var errs []error
	for _, p := range c.providers {
		if !p.Configured() {
			metrics.LLMRequestsTotal.WithLabelValues(p.Name(), "skipped").Inc()
			continue
		}
		text, err := p.Complete(ctx, prompt, c.opts)
		if err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
			c.logger.Warn("language model request failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		metrics.LLMRequestsTotal.WithLabelValues(p.Name(), "ok").Inc()

		doc, err := jsonx.Parse(text)
		if err != nil {
			c.logger.Warn("unparseable language model reply", "provider", p.Name(), "error", err)
			return jsonx.Document{}, err
		}
		c.logger.Info("language model reply parsed", "provider", p.Name())
		return doc, nil
	}
	if len(errs) == 0 {
		return jsonx.Document{}, ErrNotConfigured
	}
	return jsonx.Document{}, fmt.Errorf("all language model providers failed: %w", errors.Join(errs...))
}
