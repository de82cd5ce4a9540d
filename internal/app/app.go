// Package app builds the long-lived clients and aggregators once and hands
// them to the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/advisor"
	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/cache"
	"github.com/web3-frozen/aptos-yield-monitor/internal/config"
	"github.com/web3-frozen/aptos-yield-monitor/internal/dashboard"
	"github.com/web3-frozen/aptos-yield-monitor/internal/handler"
	"github.com/web3-frozen/aptos-yield-monitor/internal/llm"
	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
	"github.com/web3-frozen/aptos-yield-monitor/internal/monitor"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/portfolio"
	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking/protocols"
	"github.com/web3-frozen/aptos-yield-monitor/internal/store"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens/sources"
)

// HistoryRetention is how long APR snapshots are kept.
const HistoryRetention = 90 * 24 * time.Hour

// Minimum token counts that stop the market-data fallback chain.
const (
	minMarketTokens  = 5
	minIndexerTokens = 3
	minSynthTokens   = 3
)

type App struct {
	Service *dashboard.Service
	Engine  *monitor.Engine
	Cache   cache.Cache
	// Store is nil when DATABASE_URL is unset.
	Store *store.Store

	logger *slog.Logger
}

// New wires every component from cfg. Only an unreachable database is
// fatal; every other upstream degrades to its fallback.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	catalog := staking.DefaultCatalog()
	if cfg.StrategyCatalogPath != "" {
		c, err := staking.LoadCatalog(cfg.StrategyCatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load strategy catalog: %w", err)
		}
		catalog = c
	}

	fetcher := retry.New(cfg.RetryAttempts, cfg.RetryBaseDelay, retry.WithOnRetry(func(attempt int, err error) {
		metrics.RetryAttemptsTotal.WithLabelValues("read").Inc()
		logger.Debug("retrying read", "attempt", attempt, "error", err)
	}))
	node := aptos.NewClient(cfg.AptosNodeURL, cfg.AptosAPIKey)
	indexer := aptos.NewIndexer(cfg.AptosIndexerURL, cfg.AptosAPIKey)

	stakingAgg := staking.NewAggregator(catalog, logger)
	for _, p := range protocols.All(node, fetcher, logger) {
		stakingAgg.Register(p)
	}

	composer := llm.NewComposer(logger,
		llm.Options{Temperature: cfg.LLMTemperature, JSON: true},
		llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, ""),
		llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL),
	)
	if !composer.Configured() {
		logger.Warn("no language model configured, AI features disabled")
	}

	cmc := sources.NewCoinMarketCap(cfg.CoinMarketCapBaseURL, cfg.CoinMarketCapAPIKey, fetcher)
	tokenAgg := tokens.NewAggregator(logger,
		tokens.Step{Source: sources.NewCoinGecko(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, fetcher), MinCount: minMarketTokens},
		tokens.Step{Source: cmc, MinCount: minMarketTokens, Enabled: cmc.Configured},
		tokens.Step{Source: sources.NewIndexer(indexer, fetcher), MinCount: minIndexerTokens},
		tokens.Step{Source: sources.NewSynthesis(composer), MinCount: minSynthTokens, Enabled: composer.Configured, Synthetic: true},
		tokens.Step{Source: sources.Static{}, MinCount: 0, Synthetic: true, Final: true},
	)

	newsAgg := news.NewAggregator(news.NewCryptoPanic(cfg.CryptoPanicBaseURL, cfg.CryptoPanicAPIKey, fetcher), news.DefaultTopic, logger)

	c := cache.Open(cfg.RedisURL, cfg.RedisPassword, logger)

	a := &App{Cache: c, logger: logger}
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			_ = c.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database connected and migrated")
		a.Store = db
	}

	a.Service = dashboard.New(dashboard.Deps{
		Staking:   stakingAgg,
		Tokens:    tokenAgg,
		News:      newsAgg,
		Advisor:   advisor.New(composer),
		Portfolio: portfolio.NewTracker(node, fetcher, portfolio.DefaultPrices(), logger),
		Cache:     c,
		TTL: dashboard.TTLs{
			Staking: cfg.CacheTTLStaking,
			Tokens:  cfg.CacheTTLTokens,
			News:    cfg.CacheTTLNews,
		},
		Thresholds: staking.Thresholds{
			Conservative: cfg.ConservativeThresholdUSD,
			Balanced:     cfg.BalancedThresholdUSD,
			Aggressive:   cfg.AggressiveThresholdUSD,
		},
		Logger: logger,
	})

	a.Engine = a.newEngine(cfg.PollInterval)
	return a, nil
}

// newEngine registers news and staking before tokens so token synthesis
// finds both in the cache.
func (a *App) newEngine(interval time.Duration) *monitor.Engine {
	var rec monitor.SnapshotRecorder
	if a.Store != nil {
		rec = a.Store
	}

	e := monitor.NewEngine(a.logger, interval)
	e.Register(monitor.NewNewsJob(a.Service))
	e.Register(monitor.NewStakingJob(a.Service, rec, a.logger))
	e.Register(monitor.NewTokensJob(a.Service))

	if a.Store != nil {
		e.OnDaily(func(ctx context.Context) error {
			n, err := a.Store.Prune(ctx, time.Now().Add(-HistoryRetention))
			if err != nil {
				return err
			}
			a.logger.Info("pruned apr snapshots", "rows", n)
			return nil
		})
	}
	return e
}

// Pingers lists the external dependencies checked by readiness.
func (a *App) Pingers() []handler.Pinger {
	var out []handler.Pinger
	if a.Store != nil {
		out = append(out, a.Store)
	}
	if r, ok := a.Cache.(*cache.Redis); ok {
		out = append(out, r)
	}
	return out
}

func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if err := a.Cache.Close(); err != nil {
		a.logger.Warn("cache close failed", "error", err)
	}
}
