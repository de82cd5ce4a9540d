package tokens

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"
)

type fakeSource struct {
	name  string
	raws  []Raw
	err   error
	calls int
	order *[]string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, in Input) ([]Raw, error) {
	f.calls++
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.raws, f.err
}

func raw(id string, change float64) Raw {
	return Raw{ID: id, Symbol: id, Name: id, Change24h: ptr(change), MarketCap: 50_000_000}
}

func TestPrimaryShortfallReachesIndexerBeforeAI(t *testing.T) {
	var order []string
	primary := &fakeSource{name: "coingecko", raws: []Raw{raw("a", 1), raw("b", 2), raw("c", 3)}, order: &order}
	secondary := &fakeSource{name: "coinmarketcap", order: &order}
	indexer := &fakeSource{name: "aptos-indexer", raws: []Raw{raw("aptos", 0)}, order: &order}
	ai := &fakeSource{name: "ai-synthesis", order: &order}

	agg := NewAggregator(slog.Default(),
		Step{Source: primary, MinCount: 5},
		Step{Source: secondary, MinCount: 5, Enabled: func() bool { return false }},
		Step{Source: indexer, MinCount: 3},
		Step{Source: ai, MinCount: 3, Synthetic: true},
	)
	m := agg.GetTokenData(context.Background(), Input{})

	if secondary.calls != 0 {
		t.Error("unconfigured secondary source was called")
	}
	if ai.calls != 0 {
		t.Error("AI step ran although the indexer satisfied the chain")
	}
	if len(order) != 2 || order[0] != "coingecko" || order[1] != "aptos-indexer" {
		t.Errorf("call order = %v", order)
	}
	if m.MarketInfo.Source != "aptos-indexer" || m.MarketInfo.IsFallback {
		t.Errorf("MarketInfo = %+v", m.MarketInfo)
	}
	if got := m.Ledger.Entries[1].Outcome; got != "skipped" {
		t.Errorf("secondary outcome = %q, want skipped", got)
	}
}

func TestEndToEndFallsThroughToStatic(t *testing.T) {
	aptos := Raw{ID: "aptos", Symbol: "apt", Name: "Aptos", MarketCap: 2_000_000_000, Volume24h: 50_000_000, Change24h: ptr(3.0), Price: ptr(12)}
	primary := &fakeSource{name: "coingecko", raws: []Raw{aptos}}
	indexer := &fakeSource{name: "aptos-indexer", raws: []Raw{{ID: "aptos", Symbol: "APT", Name: "Aptos"}}}
	ai := &fakeSource{name: "ai-synthesis", err: errors.New("no provider configured")}
	static := &fakeSource{name: "static", raws: []Raw{
		{ID: "aptos", Symbol: "APT", Name: "Aptos"},
		raw("stapt", -7),
		raw("thl", 1.5),
		raw("mod", 0.2),
	}}

	agg := NewAggregator(slog.Default(),
		Step{Source: primary, MinCount: 5},
		Step{Source: &fakeSource{name: "coinmarketcap"}, MinCount: 5, Enabled: func() bool { return false }},
		Step{Source: indexer, MinCount: 3},
		Step{Source: ai, MinCount: 3, Synthetic: true},
		Step{Source: static, MinCount: 0, Synthetic: true},
	)
	m := agg.GetTokenData(context.Background(), Input{})

	if m.MarketInfo.TotalTokens < 3 {
		t.Fatalf("TotalTokens = %d, want >= 3", m.MarketInfo.TotalTokens)
	}
	if !m.MarketInfo.IsFallback || m.MarketInfo.Source != "static" {
		t.Errorf("MarketInfo = %+v", m.MarketInfo)
	}

	var apt *Token
	for i := range m.Tokens {
		if m.Tokens[i].ID == "aptos" {
			apt = &m.Tokens[i]
		}
	}
	if apt == nil {
		t.Fatal("aptos missing from result")
	}
	if apt.Source != "coingecko" || apt.Change24h != 3 {
		t.Errorf("aptos = %+v, want the primary copy", apt)
	}

	for i := 1; i < len(m.Tokens); i++ {
		if math.Abs(m.Tokens[i-1].Change24h) < math.Abs(m.Tokens[i].Change24h) {
			t.Fatalf("tokens not sorted by |change24h|: %v before %v", m.Tokens[i-1].Change24h, m.Tokens[i].Change24h)
		}
	}
	if m.Tokens[0].ID != "stapt" {
		t.Errorf("first token = %q, want stapt", m.Tokens[0].ID)
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var list []Token
	for i, c := range []float64{12, -4, 30, 1, -25, 8, 2, -1, 0.5, 9} {
		r := raw(string(rune('a'+i)), c)
		if i == 3 {
			r.LaunchDate = "2024-03-01"
		}
		if i == 6 {
			r.LaunchDate = "2023-01-01"
		}
		list = append(list, Classify(r))
	}

	m := Build(list, now)
	if len(m.Coins) != TopCoins {
		t.Errorf("len(Coins) = %d, want %d", len(m.Coins), TopCoins)
	}
	if m.Coins[0].Change24h != 30 || m.Coins[1].Change24h != -25 {
		t.Errorf("Coins order = %v, %v", m.Coins[0].Change24h, m.Coins[1].Change24h)
	}
	// (12-4+30+1-25+8+2-1+0.5+9)/10 = 3.25
	if m.MarketInfo.AverageChange != 3.25 || m.MarketInfo.Sentiment != "Neutral" {
		t.Errorf("MarketInfo = %+v", m.MarketInfo)
	}
	if m.Trends.Hottest.Change24h != 30 {
		t.Errorf("Hottest = %v", m.Trends.Hottest.Change24h)
	}
	if m.Trends.Coldest.Change24h != -25 {
		t.Errorf("Coldest = %v", m.Trends.Coldest.Change24h)
	}
	if m.Trends.Newest == nil || m.Trends.Newest.ID != "d" {
		t.Errorf("Newest = %+v", m.Trends.Newest)
	}
	if m.Trends.Riskiest == nil || m.Trends.Riskiest.Change24h != 30 {
		t.Errorf("Riskiest = %+v", m.Trends.Riskiest)
	}
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{6, "Bullish"},
		{5, "Neutral"},
		{-5.1, "Bearish"},
	}
	for _, tt := range tests {
		if got := sentiment(tt.avg); got != tt.want {
			t.Errorf("sentiment(%v) = %q, want %q", tt.avg, got, tt.want)
		}
	}
}

func TestCancelledContextStillServesStatic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeSource{name: "coingecko", err: context.Canceled}
	static := &fakeSource{name: "static", raws: []Raw{raw("aptos", 1), raw("stapt", 2), raw("thl", 3)}}

	agg := NewAggregator(slog.Default(),
		Step{Source: primary, MinCount: 5},
		Step{Source: static, MinCount: 0, Synthetic: true, Final: true},
	)
	m := agg.GetTokenData(ctx, Input{})

	if static.calls != 1 {
		t.Errorf("static calls = %d, want 1", static.calls)
	}
	if primary.calls != 0 {
		t.Errorf("primary ran on a cancelled context")
	}
	if m.MarketInfo.TotalTokens != 3 || m.MarketInfo.Source != "static" || !m.MarketInfo.IsFallback {
		t.Errorf("MarketInfo = %+v", m.MarketInfo)
	}
}
