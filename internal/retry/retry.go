package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// ExhaustedError is returned once every attempt has failed. It wraps the
// error of the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d retries: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher re-runs read operations with a linear backoff: the wait after
// attempt n is BaseDelay*n. There is no jitter.
type Fetcher struct {
	MaxAttempts int
	BaseDelay   time.Duration

	sleep   SleepFunc
	onRetry func(attempt int, err error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSleep replaces the real timer, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(f *Fetcher) { f.onRetry = fn }
}

func New(maxAttempts int, baseDelay time.Duration, opts ...Option) *Fetcher {
	if maxAttempts < 1 {
		maxAttempts = DefaultAttempts
	}
	if baseDelay < 0 {
		baseDelay = DefaultBaseDelay
	}
	f := &Fetcher{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		sleep:       sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Default returns a Fetcher with 3 attempts and a 1s base delay.
func Default() *Fetcher { return New(DefaultAttempts, DefaultBaseDelay) }

// Do runs op until it succeeds, the attempts run out or ctx is cancelled.
func (f *Fetcher) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= f.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if attempt == f.MaxAttempts {
			break
		}
		if f.onRetry != nil {
			f.onRetry(attempt, last)
		}
		if err := f.sleep(ctx, f.BaseDelay*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: f.MaxAttempts, Err: last}
}

// Fetch is Do for operations that produce a value.
func Fetch[T any](ctx context.Context, f *Fetcher, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := f.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
