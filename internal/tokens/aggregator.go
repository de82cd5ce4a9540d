package tokens

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/fallback"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

// TopCoins is how many tokens the headline list carries.
const TopCoins = 8

// Input is optional context some sources use to build their query.
type Input struct {
	Staking *staking.Result
	News    []news.Article
}

// Source returns raw token records.
type Source interface {
	Name() string
	Fetch(ctx context.Context, in Input) ([]Raw, error)
}

// Step places a Source in the fallback order.
type Step struct {
	Source Source
	// MinCount is the running total that stops the chain after this step.
	MinCount int
	// Enabled may be nil.
	Enabled func() bool
	// Synthetic marks sources whose figures are not market data.
	Synthetic bool
	// Final runs the step even after the context is cancelled.
	Final bool
}

// MarketInfo summarises the whole token set.
type MarketInfo struct {
	TotalTokens   int       `json:"totalTokens"`
	AverageChange float64   `json:"averageChange"`
	Sentiment     string    `json:"sentiment"`
	Source        string    `json:"source"`
	IsFallback    bool      `json:"isFallback"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Trends are single-token highlights.
type Trends struct {
	Hottest  *Token `json:"hottest,omitempty"`
	Coldest  *Token `json:"coldest,omitempty"`
	Newest   *Token `json:"newest,omitempty"`
	Riskiest *Token `json:"riskiest,omitempty"`
}

// Market is the aggregated token view.
type Market struct {
	Coins            []Token              `json:"coins"`
	Tokens           []Token              `json:"tokens"`
	MarketInfo       MarketInfo           `json:"marketInfo"`
	TokensByCategory map[Category][]Token `json:"tokensByCategory"`
	Trends           Trends               `json:"trends"`
	LastUpdated      time.Time            `json:"lastUpdated"`
	Ledger           fallback.Ledger      `json:"-"`
}

// Aggregator walks its steps in order until one satisfies its minimum.
type Aggregator struct {
	steps  []Step
	logger *slog.Logger
	now    func() time.Time
}

func NewAggregator(logger *slog.Logger, steps ...Step) *Aggregator {
	return &Aggregator{steps: steps, logger: logger, now: time.Now}
}

// GetTokenData never fails; the last step is expected to always satisfy.
func (a *Aggregator) GetTokenData(ctx context.Context, in Input) *Market {
	synthetic := make(map[string]bool)
	chainSteps := make([]fallback.Step[Raw], 0, len(a.steps))
	for _, s := range a.steps {
		src := s.Source
		if s.Synthetic {
			synthetic[src.Name()] = true
		}
		chainSteps = append(chainSteps, fallback.Step[Raw]{
			Name:     src.Name(),
			MinCount: s.MinCount,
			Enabled:  s.Enabled,
			Final:    s.Final,
			Attempt: func(ctx context.Context) ([]Raw, error) {
				raws, err := src.Fetch(ctx, in)
				for i := range raws {
					if raws[i].Source == "" {
						raws[i].Source = src.Name()
					}
				}
				return raws, err
			},
		})
	}

	raws, ledger := fallback.NewChain("tokens", a.logger, chainSteps...).Run(ctx)

	list := make([]Token, 0, len(raws))
	for _, r := range raws {
		list = append(list, Classify(r))
	}

	m := Build(list, a.now())
	m.Ledger = ledger
	m.MarketInfo.Source = ledger.SatisfiedBy
	m.MarketInfo.IsFallback = ledger.SatisfiedBy == "" || synthetic[ledger.SatisfiedBy]
	return m
}

// Build sorts tokens by absolute 24h change and derives the summary views.
func Build(list []Token, now time.Time) *Market {
	sort.SliceStable(list, func(i, j int) bool {
		return math.Abs(list[i].Change24h) > math.Abs(list[j].Change24h)
	})

	m := &Market{
		Tokens:           list,
		TokensByCategory: make(map[Category][]Token),
		LastUpdated:      now,
	}
	m.Coins = list
	if len(list) > TopCoins {
		m.Coins = list[:TopCoins]
	}

	var sum float64
	for _, t := range list {
		sum += t.Change24h
		m.TokensByCategory[t.Category] = append(m.TokensByCategory[t.Category], t)
	}
	avg := 0.0
	if len(list) > 0 {
		avg = math.Round(sum/float64(len(list))*100) / 100
	}
	m.MarketInfo = MarketInfo{
		TotalTokens:   len(list),
		AverageChange: avg,
		Sentiment:     sentiment(avg),
		LastUpdated:   now,
	}
	m.Trends = trends(list)
	return m
}

func sentiment(avg float64) string {
	switch {
	case avg > 5:
		return "Bullish"
	case avg < -5:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func trends(list []Token) Trends {
	var tr Trends
	var newest time.Time
	for i := range list {
		t := &list[i]
		if tr.Hottest == nil || t.Change24h > tr.Hottest.Change24h {
			tr.Hottest = t
		}
		if tr.Coldest == nil || t.Change24h < tr.Coldest.Change24h {
			tr.Coldest = t
		}
		if tr.Riskiest == nil || t.RiskScore > tr.Riskiest.RiskScore {
			tr.Riskiest = t
		}
		if ts, ok := t.Launch(); ok && (tr.Newest == nil || ts.After(newest)) {
			tr.Newest = t
			newest = ts
		}
	}
	return tr
}
