// Package fallback drives an ordered list of data sources, stopping at the
// first one that brings the accumulated result up to its minimum count.
package fallback

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

// Outcome of a single step.
type Outcome string

const (
	Satisfied    Outcome = "satisfied"
	Insufficient Outcome = "insufficient"
	Failed       Outcome = "failed"
	Skipped      Outcome = "skipped"
)

// Keyed is an item that can be merged by identity.
type Keyed interface {
	Key() string
}

// Step is one source in the chain. After it runs, the chain stops if the
// running total has reached MinCount.
type Step[T Keyed] struct {
	Name     string
	MinCount int
	// Enabled returns false to skip the step; nil means always enabled.
	Enabled func() bool
	// Final steps still run after ctx is done, with cancellation removed.
	// Use it for local last-resort sources that do no I/O.
	Final   bool
	Attempt func(ctx context.Context) ([]T, error)
}

// Entry records what one step contributed.
type Entry struct {
	Step     string        `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Added    int           `json:"added"`
	Total    int           `json:"total"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Ledger is the per-run record of every step.
type Ledger struct {
	ID      string  `json:"id"`
	Chain   string  `json:"chain"`
	Entries []Entry `json:"entries"`
	// SatisfiedBy is empty when no step reached its minimum.
	SatisfiedBy string `json:"satisfiedBy,omitempty"`
}

// Chain runs steps in order.
type Chain[T Keyed] struct {
	name   string
	steps  []Step[T]
	logger *slog.Logger
}

func NewChain[T Keyed](name string, logger *slog.Logger, steps ...Step[T]) *Chain[T] {
	return &Chain[T]{name: name, steps: steps, logger: logger}
}

// Run merges step results in order. An id already collected keeps the
// value from the earlier, higher-priority step. The returned slice is in
// first-seen order.
func (c *Chain[T]) Run(ctx context.Context) ([]T, Ledger) {
	ledger := Ledger{ID: uuid.NewString(), Chain: c.name}
	seen := make(map[string]bool)
	var out []T

	for _, step := range c.steps {
		stepCtx := ctx
		if ctx.Err() != nil {
			if !step.Final {
				c.record(&ledger, Entry{Step: step.Name, Outcome: Skipped, Total: len(out), Error: ctx.Err().Error()})
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}
		if step.Enabled != nil && !step.Enabled() {
			c.record(&ledger, Entry{Step: step.Name, Outcome: Skipped, Total: len(out)})
			continue
		}

		start := time.Now()
		items, err := step.Attempt(stepCtx)
		entry := Entry{Step: step.Name, Duration: time.Since(start)}
		if err != nil {
			entry.Outcome = Failed
			entry.Error = err.Error()
			entry.Total = len(out)
			c.record(&ledger, entry)
			continue
		}

		for _, it := range items {
			k := it.Key()
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, it)
			entry.Added++
		}
		entry.Total = len(out)

		if len(out) >= step.MinCount {
			entry.Outcome = Satisfied
			c.record(&ledger, entry)
			ledger.SatisfiedBy = step.Name
			break
		}
		entry.Outcome = Insufficient
		c.record(&ledger, entry)
	}

	c.logger.Info("fallback chain finished",
		"chain", c.name,
		"cycle", ledger.ID,
		"satisfied_by", ledger.SatisfiedBy,
		"total", len(out),
	)
	return out, ledger
}

func (c *Chain[T]) record(l *Ledger, e Entry) {
	l.Entries = append(l.Entries, e)
	metrics.FallbackStepsTotal.WithLabelValues(c.name, e.Step, string(e.Outcome)).Inc()

	attrs := []any{"chain", c.name, "cycle", l.ID, "step", e.Step, "outcome", e.Outcome, "added", e.Added, "total", e.Total}
	if e.Error != "" {
		c.logger.Warn("fallback step failed", append(attrs, "error", e.Error)...)
		return
	}
	c.logger.Debug("fallback step", attrs...)
}
