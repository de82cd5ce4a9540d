// Package monitor keeps the dashboard caches warm by running refresh jobs
// on a fixed interval.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

const (
	defaultInterval = 1 * time.Minute
	jobTimeout      = 45 * time.Second
)

// Job is one periodic refresh.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Status is the last known state of a job.
type Status struct {
	Job         string    `json:"job"`
	Runs        int       `json:"runs"`
	LastRun     time.Time `json:"lastRun"`
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
}

// DailyFunc runs once a day, e.g. to prune history.
type DailyFunc func(ctx context.Context) error

// Engine polls registered jobs in registration order.
type Engine struct {
	logger   *slog.Logger
	interval time.Duration
	jobs     []Job
	daily    DailyFunc
	status   map[string]*Status
	mu       sync.RWMutex
	now      func() time.Time
}

func NewEngine(logger *slog.Logger, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Engine{
		logger:   logger,
		interval: interval,
		status:   make(map[string]*Status),
		now:      time.Now,
	}
}

// Register adds a job. Jobs run sequentially so later jobs can reuse what
// earlier ones cached.
func (e *Engine) Register(j Job) {
	e.jobs = append(e.jobs, j)
	e.mu.Lock()
	e.status[j.Name()] = &Status{Job: j.Name()}
	e.mu.Unlock()
	e.logger.Info("registered job", "job", j.Name())
}

// OnDaily sets the daily maintenance task.
func (e *Engine) OnDaily(fn DailyFunc) { e.daily = fn }

// JobNames returns names of all registered jobs.
func (e *Engine) JobNames() []string {
	names := make([]string, 0, len(e.jobs))
	for _, j := range e.jobs {
		names = append(names, j.Name())
	}
	return names
}

// GetStatus returns a copy of the job's status, or nil.
func (e *Engine) GetStatus(job string) *Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.status[job]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// Statuses returns every job status in registration order.
func (e *Engine) Statuses() []Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Status, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, *e.status[j.Name()])
	}
	return out
}

// Ready reports whether every job has succeeded at least once.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.status {
		if s.LastSuccess.IsZero() {
			return false
		}
	}
	return true
}

// Run refreshes immediately and then on every tick until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	e.RunOnce(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	dailyTimer := e.nextDailyTimer()
	defer dailyTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		case <-dailyTimer.C:
			e.runDaily(ctx)
			dailyTimer = e.nextDailyTimer()
		}
	}
}

// RunOnce runs every job once.
func (e *Engine) RunOnce(ctx context.Context) {
	for _, j := range e.jobs {
		if ctx.Err() != nil {
			return
		}
		e.runJob(ctx, j)
	}
}

func (e *Engine) runJob(ctx context.Context, j Job) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := e.now()
	err := runSafely(ctx, j)
	elapsed := time.Since(start)

	e.mu.Lock()
	s := e.status[j.Name()]
	s.Runs++
	s.LastRun = start
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
		s.LastSuccess = start
	}
	e.mu.Unlock()

	if err != nil {
		metrics.RefreshTotal.WithLabelValues(j.Name(), "error").Inc()
		e.logger.Error("refresh failed", "job", j.Name(), "error", err, "duration", elapsed)
		return
	}
	metrics.RefreshTotal.WithLabelValues(j.Name(), "ok").Inc()
	metrics.RefreshLastSuccess.WithLabelValues(j.Name()).Set(float64(start.Unix()))
	e.logger.Info("refreshed", "job", j.Name(), "duration", elapsed)
}

func runSafely(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.Run(ctx)
}

func (e *Engine) runDaily(ctx context.Context) {
	if e.daily == nil {
		return
	}
	if err := e.daily(ctx); err != nil {
		e.logger.Error("daily maintenance failed", "error", err)
	}
}

// nextDailyTimer fires at 00:00 UTC.
func (e *Engine) nextDailyTimer() *time.Timer {
	now := e.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return time.NewTimer(next.Sub(now))
}
