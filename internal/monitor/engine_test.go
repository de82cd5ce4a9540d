package monitor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/store"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

type mockJob struct {
	name  string
	err   error
	panic bool
	runs  int
	order *[]string
}

func (m *mockJob) Name() string { return m.name }

func (m *mockJob) Run(ctx context.Context) error {
	m.runs++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	if m.panic {
		panic("boom")
	}
	return m.err
}

func TestEngineRegisterAndJobNames(t *testing.T) {
	e := NewEngine(slog.Default(), time.Minute)
	e.Register(&mockJob{name: "news"})
	e.Register(&mockJob{name: "staking"})

	names := e.JobNames()
	if len(names) != 2 || names[0] != "news" || names[1] != "staking" {
		t.Errorf("JobNames = %v, want [news staking]", names)
	}
}

func TestEngineGetStatusUnknown(t *testing.T) {
	e := NewEngine(slog.Default(), time.Minute)
	if s := e.GetStatus("nonexistent"); s != nil {
		t.Errorf("GetStatus(nonexistent) = %v, want nil", s)
	}
}

func TestRunOnceOrderAndStatus(t *testing.T) {
	var order []string
	ok := &mockJob{name: "news", order: &order}
	bad := &mockJob{name: "staking", err: errors.New("rpc down"), order: &order}
	boom := &mockJob{name: "tokens", panic: true, order: &order}

	e := NewEngine(slog.Default(), time.Minute)
	e.Register(ok)
	e.Register(bad)
	e.Register(boom)

	if e.Ready() {
		t.Error("Ready before any run")
	}
	e.RunOnce(context.Background())

	if len(order) != 3 || order[0] != "news" || order[2] != "tokens" {
		t.Errorf("order = %v", order)
	}
	if s := e.GetStatus("news"); s.Runs != 1 || s.LastSuccess.IsZero() || s.LastError != "" {
		t.Errorf("news status = %+v", s)
	}
	if s := e.GetStatus("staking"); s.LastError != "rpc down" || !s.LastSuccess.IsZero() {
		t.Errorf("staking status = %+v", s)
	}
	if s := e.GetStatus("tokens"); s.LastError == "" {
		t.Error("panicking job should record an error")
	}
	if e.Ready() {
		t.Error("Ready with failing jobs")
	}

	bad.err = nil
	boom.panic = false
	e.RunOnce(context.Background())
	if !e.Ready() {
		t.Errorf("Ready = false after all jobs succeeded: %+v", e.Statuses())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := NewEngine(slog.Default(), 10*time.Millisecond)
	j := &mockJob{name: "news"}
	e.Register(j)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s := e.GetStatus("news"); s.Runs < 2 {
		t.Errorf("Runs = %d, want at least 2", s.Runs)
	}
}

func sampleResult(at time.Time) *staking.Result {
	amnis := &staking.ProtocolRate{Protocol: "amnis", BlendedStrategy: &staking.Blend{APR: 8.65}}
	amnis.SetOffer(staking.Staking, &staking.Offer{APR: 8.5, Product: "stAPT"})
	amnis.SetOffer(staking.AMM, &staking.Offer{APR: 10, Product: "amAPT/APT"})
	return &staking.Result{
		Protocols: map[string]*staking.ProtocolRate{
			"amnis": amnis,
			"thala": {Protocol: "thala", Error: "timeout"},
		},
		ProtocolOrder: []string{"amnis", "thala"},
		Strategies:    map[string]staking.Strategy{"balanced": {Name: "balanced", APR: 8.8}},
		StrategyOrder: []string{"balanced"},
		LastUpdated:   at,
	}
}

func TestSnapshotRows(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := SnapshotRows(sampleResult(at), at)

	// 2 offers + 1 blend for amnis, failed thala skipped, 1 strategy
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4: %+v", len(rows), rows)
	}
	if rows[0].ProductType != "staking" || rows[0].APR != 8.5 || rows[0].Product != "stAPT" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[2].ProductType != store.BlendedProduct || rows[2].APR != 8.65 {
		t.Errorf("rows[2] = %+v", rows[2])
	}
	if rows[3].Protocol != "strategy:balanced" || !rows[3].RecordedAt.Equal(at) {
		t.Errorf("rows[3] = %+v", rows[3])
	}
}

type fakeRefresher struct {
	res *staking.Result
}

func (f *fakeRefresher) RefreshStaking(ctx context.Context) *staking.Result { return f.res }
func (f *fakeRefresher) RefreshNews(ctx context.Context) *news.Feed         { return &news.Feed{} }
func (f *fakeRefresher) RefreshTokens(ctx context.Context) *tokens.Market   { return &tokens.Market{} }

type fakeRecorder struct {
	rows []store.Snapshot
	err  error
}

func (f *fakeRecorder) RecordSnapshots(ctx context.Context, rows []store.Snapshot) error {
	f.rows = append(f.rows, rows...)
	return f.err
}

func TestStakingJobRecords(t *testing.T) {
	rec := &fakeRecorder{}
	j := NewStakingJob(&fakeRefresher{res: sampleResult(time.Now())}, rec, slog.Default())
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.rows) != 4 {
		t.Errorf("recorded %d rows, want 4", len(rec.rows))
	}

	rec.err = errors.New("db down")
	if err := j.Run(context.Background()); err == nil {
		t.Error("expected recorder error")
	}
}

func TestStakingJobWithoutStore(t *testing.T) {
	j := NewStakingJob(&fakeRefresher{res: sampleResult(time.Now())}, nil, slog.Default())
	if err := j.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}
