package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		RetryAttempts:            1,
		RetryBaseDelay:           time.Millisecond,
		PollInterval:             time.Minute,
		CacheTTLStaking:          time.Minute,
		CacheTTLTokens:           time.Minute,
		CacheTTLNews:             time.Minute,
		ConservativeThresholdUSD: 1000,
		BalancedThresholdUSD:     10000,
		AggressiveThresholdUSD:   50000,
	}
}

func TestNewWithoutDatabase(t *testing.T) {
	a, err := New(context.Background(), testConfig(), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Store != nil {
		t.Error("Store should be nil without DATABASE_URL")
	}
	if got := len(a.Pingers()); got != 0 {
		t.Errorf("len(Pingers) = %d, want 0 with local cache", got)
	}
	want := []string{"news", "staking", "tokens"}
	got := a.Engine.JobNames()
	if len(got) != len(want) {
		t.Fatalf("JobNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("JobNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if profiles := a.Service.RiskProfiles(); len(profiles) != 5 {
		t.Errorf("RiskProfiles = %v", profiles)
	}
}

func TestNewMissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.StrategyCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(context.Background(), cfg, slog.Default()); err == nil {
		t.Error("expected error for missing catalog file")
	}
}

func TestAggregationsNeverFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	cfg := testConfig()
	cfg.AptosNodeURL = down.URL
	cfg.AptosIndexerURL = down.URL
	cfg.CoinGeckoBaseURL = down.URL
	cfg.CryptoPanicBaseURL = down.URL

	a, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	res := a.Service.RefreshStaking(ctx)
	if len(res.Protocols) != 5 {
		t.Errorf("len(Protocols) = %d, want 5", len(res.Protocols))
	}
	for name, p := range res.Protocols {
		if !p.IsFallback {
			t.Errorf("%s should carry default rates", name)
		}
	}

	feed := a.Service.RefreshNews(ctx)
	if !feed.IsFallback || len(feed.Articles) == 0 {
		t.Errorf("news = %+v, want canned fallback", feed)
	}

	m := a.Service.RefreshTokens(ctx)
	if m.MarketInfo.Source != "static" || !m.MarketInfo.IsFallback {
		t.Errorf("MarketInfo = %+v, want static fallback", m.MarketInfo)
	}
	if len(m.Tokens) < 3 {
		t.Errorf("len(Tokens) = %d, want >= 3", len(m.Tokens))
	}
}
