package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/store"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

// Refresher is the part of dashboard.Service the jobs drive.
type Refresher interface {
	RefreshStaking(ctx context.Context) *staking.Result
	RefreshNews(ctx context.Context) *news.Feed
	RefreshTokens(ctx context.Context) *tokens.Market
}

// SnapshotRecorder persists APR history. May be nil.
type SnapshotRecorder interface {
	RecordSnapshots(ctx context.Context, rows []store.Snapshot) error
}

// StakingJob refreshes protocol rates, exports them as gauges and records
// them in the history table.
type StakingJob struct {
	svc    Refresher
	rec    SnapshotRecorder
	logger *slog.Logger
}

func NewStakingJob(svc Refresher, rec SnapshotRecorder, logger *slog.Logger) *StakingJob {
	return &StakingJob{svc: svc, rec: rec, logger: logger}
}

func (j *StakingJob) Name() string { return "staking" }

func (j *StakingJob) Run(ctx context.Context) error {
	res := j.svc.RefreshStaking(ctx)
	if res == nil {
		return errors.New("no staking result")
	}
	exportGauges(res)

	if j.rec == nil {
		return nil
	}
	rows := SnapshotRows(res, res.LastUpdated)
	if err := j.rec.RecordSnapshots(ctx, rows); err != nil {
		return err
	}
	j.logger.Debug("recorded apr snapshots", "rows", len(rows))
	return nil
}

func exportGauges(res *staking.Result) {
	for _, p := range res.Ordered() {
		if p.Failed() {
			continue
		}
		for _, t := range staking.ProductTypes {
			if o := p.Offer(t); o != nil {
				metrics.ProtocolAPR.WithLabelValues(p.Protocol, string(t)).Set(o.APR)
			}
		}
		if p.BlendedStrategy != nil {
			metrics.ProtocolAPR.WithLabelValues(p.Protocol, store.BlendedProduct).Set(p.BlendedStrategy.APR)
		}
	}
	for _, s := range res.OrderedStrategies() {
		metrics.StrategyAPR.WithLabelValues(s.Name).Set(s.APR)
	}
}

// SnapshotRows flattens a result into history rows: one per offer, one per
// protocol blend and one per strategy.
func SnapshotRows(res *staking.Result, at time.Time) []store.Snapshot {
	var rows []store.Snapshot
	for _, p := range res.Ordered() {
		if p.Failed() {
			continue
		}
		for _, t := range staking.ProductTypes {
			o := p.Offer(t)
			if o == nil {
				continue
			}
			rows = append(rows, store.Snapshot{
				Protocol:    p.Protocol,
				ProductType: string(t),
				Product:     o.Product,
				APR:         o.APR,
				IsFallback:  p.IsFallback,
				RecordedAt:  at,
			})
		}
		if p.BlendedStrategy != nil {
			rows = append(rows, store.Snapshot{
				Protocol:    p.Protocol,
				ProductType: store.BlendedProduct,
				APR:         p.BlendedStrategy.APR,
				IsFallback:  p.IsFallback,
				RecordedAt:  at,
			})
		}
	}
	for _, s := range res.OrderedStrategies() {
		rows = append(rows, store.Snapshot{
			Protocol:    store.StrategyPrefix + s.Name,
			ProductType: store.BlendedProduct,
			APR:         s.APR,
			RecordedAt:  at,
		})
	}
	return rows
}

// NewsJob refreshes the news feed.
type NewsJob struct{ svc Refresher }

func NewNewsJob(svc Refresher) *NewsJob { return &NewsJob{svc: svc} }

func (j *NewsJob) Name() string { return "news" }

func (j *NewsJob) Run(ctx context.Context) error {
	if feed := j.svc.RefreshNews(ctx); feed == nil {
		return errors.New("no news feed")
	}
	return nil
}

// TokensJob refreshes the token market. Run it after staking and news so
// synthesis has context.
type TokensJob struct{ svc Refresher }

func NewTokensJob(svc Refresher) *TokensJob { return &TokensJob{svc: svc} }

func (j *TokensJob) Name() string { return "tokens" }

func (j *TokensJob) Run(ctx context.Context) error {
	if m := j.svc.RefreshTokens(ctx); m == nil {
		return errors.New("no token market")
	}
	return nil
}
