package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	"github.com/web3-frozen/aptos-yield-monitor/internal/advisor"
	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/dashboard"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/store"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

const validAddr = "0x" + "ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12ab12"

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name string
		warm func() bool
		deps []Pinger
		want int
	}{
		{"all up", func() bool { return true }, []Pinger{fakePinger{}}, http.StatusOK},
		{"no warm check", nil, nil, http.StatusOK},
		{"dependency down", nil, []Pinger{fakePinger{}, fakePinger{err: errors.New("refused")}}, http.StatusServiceUnavailable},
		{"still warming", func() bool { return false }, nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Ready(tt.warm, tt.deps...)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func sampleStaking() *staking.Result {
	protocols := map[string]*staking.ProtocolRate{
		"amnis": {Protocol: "amnis", DisplayName: "Amnis Finance", Staking: &staking.Offer{APR: 8.5}, BlendedStrategy: &staking.Blend{APR: 8.65}},
		"thala": {Protocol: "thala", Error: "rpc down"},
	}
	res := &staking.Result{
		Protocols:           protocols,
		ProtocolOrder:       []string{"amnis", "thala"},
		RecommendedProtocol: "amnis",
		Strategies:          map[string]staking.Strategy{},
		LastUpdated:         time.Now(),
	}
	for _, def := range staking.DefaultCatalog().Strategies {
		res.Strategies[def.Name] = staking.Evaluate(def, protocols)
		res.StrategyOrder = append(res.StrategyOrder, def.Name)
	}
	return res
}

type fakeOverview struct{ ov *dashboard.Overview }

func (f fakeOverview) Overview(context.Context) *dashboard.Overview { return f.ov }

func TestDashboardPage(t *testing.T) {
	ov := &dashboard.Overview{
		Staking: sampleStaking(),
		Tokens: &tokens.Market{
			Tokens:     []tokens.Token{{Symbol: "APT", Price: tokens.Price{Value: 12.5, Known: true}, Change24h: 3.2}},
			MarketInfo: tokens.MarketInfo{Sentiment: "Bullish", IsFallback: true},
		},
		News:          news.Fallback(time.Now()),
		StrategyError: "no language model configured",
	}

	rec := httptest.NewRecorder()
	Dashboard(fakeOverview{ov})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Find("tr.protocol").Length(); got != 2 {
		t.Errorf("protocol rows = %d, want 2", got)
	}
	if got := doc.Find(`tr[data-protocol="thala"] td.error`).Text(); got != "rpc down" {
		t.Errorf("thala error cell = %q", got)
	}
	if got := doc.Find("tr.strategy").Length(); got != 5 {
		t.Errorf("strategy rows = %d, want 5", got)
	}
	if got := doc.Find("p.recommended span").Text(); got != "amnis" {
		t.Errorf("recommended = %q", got)
	}
	if got := doc.Find("tr.token td").Eq(1).Text(); got != "$12.5" {
		t.Errorf("price cell = %q, want $12.5", got)
	}
	if !strings.Contains(doc.Find("#tokens h2").Text(), "(estimated)") {
		t.Error("fallback token data not flagged")
	}
	if doc.Find("li.article").Length() == 0 {
		t.Error("no news rendered")
	}
	if got := doc.Find("p.strategy-error").Text(); got != "no language model configured" {
		t.Errorf("strategy error = %q", got)
	}
}

type fakeData struct{}

func (fakeData) Staking(context.Context) *staking.Result { return sampleStaking() }
func (fakeData) Tokens(context.Context) *tokens.Market {
	return &tokens.Market{MarketInfo: tokens.MarketInfo{Source: "static", TotalTokens: 5}}
}
func (fakeData) News(context.Context) *news.Feed { return news.Fallback(time.Now()) }

func TestDashboardPageRenderFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	Dashboard(fakeOverview{nil})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Errorf("partial page written: %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestDataEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		key     string
	}{
		{"staking", Staking(fakeData{}), "recommendedProtocol"},
		{"tokens", Tokens(fakeData{}), "marketInfo"},
		{"news", News(fakeData{}), "articles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body map[string]json.RawMessage
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if _, ok := body[tt.key]; !ok {
				t.Errorf("missing %q in response", tt.key)
			}
		})
	}
}

type fakeHistory struct {
	got store.HistoryQuery
	err error
}

func (f *fakeHistory) History(_ context.Context, q store.HistoryQuery) ([]store.Snapshot, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return []store.Snapshot{{Protocol: q.Protocol, APR: 8.5}}, nil
}

func TestStakingHistory(t *testing.T) {
	h := &fakeHistory{}
	rec := httptest.NewRecorder()
	StakingHistory(h)(rec, httptest.NewRequest(http.MethodGet, "/?protocol=amnis&product=staking&since=24h&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if h.got.Protocol != "amnis" || h.got.ProductType != "staking" || h.got.Limit != 10 {
		t.Errorf("query = %+v", h.got)
	}
	if time.Since(h.got.Since) < 23*time.Hour {
		t.Errorf("Since = %v", h.got.Since)
	}

	for _, q := range []string{"since=yesterday", "since=-1h", "limit=abc", "limit=0"} {
		rec := httptest.NewRecorder()
		StakingHistory(h)(rec, httptest.NewRequest(http.MethodGet, "/?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}

	rec = httptest.NewRecorder()
	StakingHistory(nil)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("nil store: status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	StakingHistory(&fakeHistory{err: errors.New("db down")})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: status = %d, want 500", rec.Code)
	}
}

type fakeWallet struct{ err error }

func (f fakeWallet) Wallet(_ context.Context, addr string) (*dashboard.WalletReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dashboard.WalletReport{Wallet: addr}, nil
}

func serveWallet(a WalletAnalyzer, addr string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/wallet/{address}", Wallet(a))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/"+addr, nil))
	return rec
}

func TestWallet(t *testing.T) {
	tests := []struct {
		name string
		addr string
		err  error
		want int
	}{
		{"ok", validAddr, nil, http.StatusOK},
		{"short address", "0x1234", nil, http.StatusBadRequest},
		{"not hex", "0x" + strings.Repeat("z", 64), nil, http.StatusBadRequest},
		{"unknown account", validAddr, fmt.Errorf("account validation failed: %w", aptos.ErrAccountNotFound), http.StatusNotFound},
		{"empty account", validAddr, fmt.Errorf("account validation failed: %w", aptos.ErrNoResources), http.StatusNotFound},
		{"node error", validAddr, errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWallet(fakeWallet{err: tt.err}, tt.addr)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := serveWallet(fakeWallet{}, "0x1")
	if !strings.Contains(rec.Body.String(), "Invalid wallet address format") {
		t.Errorf("body = %s", rec.Body.String())
	}
	rec = serveWallet(fakeWallet{err: errors.New("connection reset")}, validAddr)
	var body errorBody
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Details != "connection reset" {
		t.Errorf("details = %q", body.Details)
	}
}

type fakeRecommender struct {
	err    error
	wallet string
}

func (f *fakeRecommender) Recommend(_ context.Context, amount float64, profile, wallet string) (*advisor.Recommendation, error) {
	f.wallet = wallet
	if f.err != nil {
		return nil, f.err
	}
	return &advisor.Recommendation{Title: profile, TotalAPR: 8.2}, nil
}

func (f *fakeRecommender) RiskProfiles() []string {
	return []string{"conservative", "balanced", "aggressive"}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{"ok", "amount=100&riskProfile=balanced", nil, http.StatusOK},
		{"with wallet", "amount=100&riskProfile=balanced&walletAddress=" + validAddr, nil, http.StatusOK},
		{"missing amount", "riskProfile=balanced", nil, http.StatusBadRequest},
		{"non-numeric amount", "amount=lots&riskProfile=balanced", nil, http.StatusBadRequest},
		{"NaN amount", "amount=NaN&riskProfile=balanced", nil, http.StatusBadRequest},
		{"infinite amount", "amount=Inf&riskProfile=balanced", nil, http.StatusBadRequest},
		{"signed infinite amount", "amount=%2BInf&riskProfile=conservative", nil, http.StatusBadRequest},
		{"unknown profile", "amount=100&riskProfile=yolo", nil, http.StatusBadRequest},
		{"bad wallet", "amount=100&riskProfile=balanced&walletAddress=0x12", nil, http.StatusBadRequest},
		{"model failure", "amount=100&riskProfile=aggressive", errors.New("all language model providers failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &fakeRecommender{err: tt.err}
			rec := httptest.NewRecorder()
			Recommendations(rc)(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations/ai?"+tt.query, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusInternalServerError && !strings.Contains(rec.Body.String(), "Error generating AI recommendation") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}
