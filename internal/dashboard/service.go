// Package dashboard is the entry point used by the HTTP layer. It caches
// aggregation results and coalesces concurrent refreshes.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/web3-frozen/aptos-yield-monitor/internal/advisor"
	"github.com/web3-frozen/aptos-yield-monitor/internal/cache"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/portfolio"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

const (
	KeyStaking = "staking"
	KeyTokens  = "tokens"
	KeyNews    = "news"
)

// TTLs are the cache lifetimes per dataset.
type TTLs struct {
	Staking time.Duration
	Tokens  time.Duration
	News    time.Duration
}

// Deps are the collaborators of a Service.
type Deps struct {
	Staking    *staking.Aggregator
	Tokens     *tokens.Aggregator
	News       *news.Aggregator
	Advisor    *advisor.Advisor
	Portfolio  *portfolio.Tracker
	Cache      cache.Cache
	TTL        TTLs
	Thresholds staking.Thresholds
	Logger     *slog.Logger
}

type Service struct {
	deps  Deps
	group singleflight.Group
}

func New(d Deps) *Service {
	return &Service{deps: d}
}

// Overview is everything the dashboard page renders.
type Overview struct {
	Staking         *staking.Result         `json:"stakingData"`
	Tokens          *tokens.Market          `json:"tokenData"`
	News            *news.Feed              `json:"newsData"`
	GeneralStrategy *advisor.Recommendation `json:"generalStrategy"`
	StrategyError   string                  `json:"strategyError,omitempty"`
}

// WalletReport is the response of the wallet analysis.
type WalletReport struct {
	Wallet                 string                  `json:"wallet"`
	Portfolio              *portfolio.Snapshot     `json:"portfolio"`
	StakingRecommendations *staking.Recommendation `json:"stakingRecommendations"`
}

func (s *Service) Staking(ctx context.Context) *staking.Result {
	return load(ctx, s, KeyStaking, s.deps.TTL.Staking, s.deps.Staking.GetStakingData)
}

func (s *Service) News(ctx context.Context) *news.Feed {
	return load(ctx, s, KeyNews, s.deps.TTL.News, s.deps.News.GetLatestNews)
}

// Tokens reuses cached staking and news as synthesis context but never
// triggers a fetch of them.
func (s *Service) Tokens(ctx context.Context) *tokens.Market {
	return load(ctx, s, KeyTokens, s.deps.TTL.Tokens, func(ctx context.Context) *tokens.Market {
		var in tokens.Input
		var st staking.Result
		if cache.GetJSON(ctx, s.deps.Cache, KeyStaking, &st) {
			in.Staking = &st
		}
		var feed news.Feed
		if cache.GetJSON(ctx, s.deps.Cache, KeyNews, &feed) {
			in.News = feed.Articles
		}
		return s.deps.Tokens.GetTokenData(ctx, in)
	})
}

// RefreshStaking bypasses the cache and stores the new result.
func (s *Service) RefreshStaking(ctx context.Context) *staking.Result {
	return refresh(ctx, s, KeyStaking, s.deps.TTL.Staking, s.deps.Staking.GetStakingData)
}

func (s *Service) RefreshNews(ctx context.Context) *news.Feed {
	return refresh(ctx, s, KeyNews, s.deps.TTL.News, s.deps.News.GetLatestNews)
}

func (s *Service) RefreshTokens(ctx context.Context) *tokens.Market {
	_ = s.deps.Cache.Delete(ctx, KeyTokens)
	return s.Tokens(ctx)
}

// Overview loads the three datasets in parallel and then asks for a
// general strategy. A strategy failure is reported, not returned.
func (s *Service) Overview(ctx context.Context) *Overview {
	ov := &Overview{}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); ov.Staking = s.Staking(ctx) }()
	go func() { defer wg.Done(); ov.News = s.News(ctx) }()
	go func() { defer wg.Done(); ov.Tokens = s.Tokens(ctx) }()
	wg.Wait()

	if s.deps.Advisor == nil {
		return ov
	}
	rec, err := s.deps.Advisor.General(ctx, advisor.Market{Staking: ov.Staking, Tokens: ov.Tokens, News: ov.News})
	if err != nil {
		s.deps.Logger.Warn("general strategy unavailable", "error", err)
		ov.StrategyError = err.Error()
		return ov
	}
	ov.GeneralStrategy = rec
	return ov
}

// Wallet reads the wallet and maps it onto a catalog strategy.
func (s *Service) Wallet(ctx context.Context, addr string) (*WalletReport, error) {
	snap, err := s.deps.Portfolio.Snapshot(ctx, addr)
	if err != nil {
		return nil, err
	}
	rec := staking.Personalize(s.Staking(ctx), snap.Holdings(), s.deps.Thresholds)
	return &WalletReport{Wallet: addr, Portfolio: snap, StakingRecommendations: rec}, nil
}

// Recommend asks the language model for a personalised strategy. The
// wallet is optional.
func (s *Service) Recommend(ctx context.Context, amountAPT float64, riskProfile, wallet string) (*advisor.Recommendation, error) {
	req := advisor.Request{AmountAPT: amountAPT, RiskProfile: riskProfile}
	if wallet != "" {
		snap, err := s.deps.Portfolio.Snapshot(ctx, wallet)
		if err != nil {
			return nil, err
		}
		req.Portfolio = snap
	}
	return s.deps.Advisor.Personalized(ctx, req, s.Staking(ctx))
}

// RiskProfiles lists the profile names accepted by Recommend.
func (s *Service) RiskProfiles() []string {
	return s.deps.Staking.Catalog().Names()
}

func load[T any](ctx context.Context, s *Service, key string, ttl time.Duration, fetch func(context.Context) *T) *T {
	var cached T
	if cache.GetJSON(ctx, s.deps.Cache, key, &cached) {
		return &cached
	}
	return refresh(ctx, s, key, ttl, fetch)
}

func refresh[T any](ctx context.Context, s *Service, key string, ttl time.Duration, fetch func(context.Context) *T) *T {
	v, _, _ := s.group.Do(key, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		fctx := context.WithoutCancel(ctx)
		res := fetch(fctx)
		if err := cache.SetJSON(fctx, s.deps.Cache, key, res, ttl); err != nil {
			s.deps.Logger.Warn("cache write failed", "key", key, "error", err)
		}
		return res, nil
	})
	return v.(*T)
}
