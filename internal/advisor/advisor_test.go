package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/web3-frozen/aptos-yield-monitor/internal/jsonx"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/portfolio"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

type fakeComposer struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeComposer) Compose(ctx context.Context, prompt string) (jsonx.Document, error) {
	f.prompt = prompt
	if f.err != nil {
		return jsonx.Document{}, f.err
	}
	return jsonx.Parse(f.reply)
}

func stakingResult() *staking.Result {
	return &staking.Result{Protocols: map[string]*staking.ProtocolRate{
		"amnis": {Protocol: "amnis", Staking: &staking.Offer{APR: 8.5, Product: "stAPT"}},
	}}
}

func TestPersonalizedPrompt(t *testing.T) {
	p := PersonalizedPrompt(Request{AmountAPT: 250.5, RiskProfile: "aggressive"}, stakingResult())
	for _, want := range []string{"250.5 APT", "Risk profile: aggressive", "Current portfolio: Not provided", `"stAPT"`, "mitigations"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	snap := &portfolio.Snapshot{Address: "0xabc", TotalValueUSD: 1330}
	p = PersonalizedPrompt(Request{AmountAPT: 10, RiskProfile: "balanced", Portfolio: snap}, stakingResult())
	if !strings.Contains(p, `"totalValueUsd":1330`) {
		t.Error("prompt missing portfolio JSON")
	}
}

func TestGeneralPromptLimitsToFive(t *testing.T) {
	var list []tokens.Token
	for i := 0; i < 8; i++ {
		list = append(list, tokens.Token{ID: "tok" + string(rune('a'+i))})
	}
	feed := &news.Feed{}
	for i := 0; i < 7; i++ {
		feed.Articles = append(feed.Articles, news.Article{Headline: "headline " + string(rune('A'+i))})
	}
	p := GeneralPrompt(Market{Staking: stakingResult(), Tokens: &tokens.Market{Coins: list}, News: feed})

	if !strings.Contains(p, `"toke"`) || strings.Contains(p, `"tokf"`) {
		t.Error("token overview should hold exactly the first five coins")
	}
	if !strings.Contains(p, "headline E") || strings.Contains(p, "headline F") {
		t.Error("news should hold exactly the first five articles")
	}
}

func TestGeneralPromptWithoutData(t *testing.T) {
	p := GeneralPrompt(Market{})
	if !strings.Contains(p, "Token Overview: []") || !strings.Contains(p, "Latest News: []") {
		t.Errorf("prompt = %s", p)
	}
}

func TestDecodeLenient(t *testing.T) {
	doc, err := jsonx.Parse(`{
		"title": "Steady Yield",
		"allocation": [
			{"protocol": "amnis", "product": "stAPT", "percentage": "60", "expectedApr": "8.5%"},
			{"protocol": "echo", "product": "lending", "percentage": 40, "expectedApr": 5}
		],
		"totalApr": "7.1",
		"risks": "Smart contract risk",
		"steps": ["Stake 60%", "Lend 40%"]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	rec := Decode(doc)
	if rec.Title != "Steady Yield" || rec.TotalAPR != 7.1 {
		t.Errorf("rec = %+v", rec)
	}
	if len(rec.Allocation) != 2 || rec.Allocation[0].Percentage != 60 || rec.Allocation[0].ExpectedAPR != 8.5 {
		t.Errorf("Allocation = %+v", rec.Allocation)
	}
	if len(rec.Risks) != 1 || rec.Risks[0] != "Smart contract risk" {
		t.Errorf("Risks = %v", rec.Risks)
	}
	if len(rec.Steps) != 2 {
		t.Errorf("Steps = %v", rec.Steps)
	}
	if rec.Summary != "" || rec.Mitigations != nil {
		t.Errorf("absent keys should stay empty: %+v", rec)
	}
}

func TestGeneralDefaultsTitle(t *testing.T) {
	c := &fakeComposer{reply: `{"summary": "Mostly stake", "totalApr": 8}`}
	rec, err := New(c).General(context.Background(), Market{})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "General Market Strategy" {
		t.Errorf("Title = %q", rec.Title)
	}
}

func TestPersonalizedPropagatesErrors(t *testing.T) {
	c := &fakeComposer{reply: "no json here"}
	_, err := New(c).Personalized(context.Background(), Request{AmountAPT: 1, RiskProfile: "balanced"}, stakingResult())
	var pe *jsonx.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("err = %v, want *jsonx.ParseError", err)
	}

	c = &fakeComposer{err: errors.New("all language model providers failed")}
	if _, err := New(c).Personalized(context.Background(), Request{}, stakingResult()); err == nil {
		t.Error("expected composer error")
	}
}
