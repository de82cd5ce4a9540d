// Package advisor builds investment prompts from live dashboard data and
// decodes the model's structured reply.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/web3-frozen/aptos-yield-monitor/internal/jsonx"
	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/portfolio"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

// Composer is satisfied by *llm.Composer.
type Composer interface {
	Compose(ctx context.Context, prompt string) (jsonx.Document, error)
}

// Allocation is one line of a suggested portfolio.
type Allocation struct {
	Protocol    string  `json:"protocol"`
	Product     string  `json:"product"`
	Percentage  float64 `json:"percentage"`
	ExpectedAPR float64 `json:"expectedApr"`
}

// Recommendation is the decoded model reply. Absent keys stay zero.
type Recommendation struct {
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	Allocation      []Allocation `json:"allocation"`
	TotalAPR        float64      `json:"totalApr"`
	Rationale       string       `json:"rationale,omitempty"`
	Steps           []string     `json:"steps,omitempty"`
	Risks           []string     `json:"risks"`
	Mitigations     []string     `json:"mitigations,omitempty"`
	AdditionalNotes string       `json:"additionalNotes,omitempty"`
}

// Request holds the user parameters for a personalised recommendation.
type Request struct {
	AmountAPT   float64
	RiskProfile string
	// Portfolio is nil when no wallet was given.
	Portfolio *portfolio.Snapshot
}

// Market is the context for the general strategy.
type Market struct {
	Staking *staking.Result
	Tokens  *tokens.Market
	News    *news.Feed
}

type Advisor struct {
	composer Composer
}

func New(c Composer) *Advisor {
	return &Advisor{composer: c}
}

// Personalized asks for a strategy tailored to req.
func (a *Advisor) Personalized(ctx context.Context, req Request, stakingData *staking.Result) (*Recommendation, error) {
	doc, err := a.composer.Compose(ctx, PersonalizedPrompt(req, stakingData))
	if err != nil {
		return nil, err
	}
	return Decode(doc), nil
}

// General asks for a strategy for visitors without a connected wallet.
func (a *Advisor) General(ctx context.Context, m Market) (*Recommendation, error) {
	doc, err := a.composer.Compose(ctx, GeneralPrompt(m))
	if err != nil {
		return nil, err
	}
	rec := Decode(doc)
	if rec.Title == "" {
		rec.Title = "General Market Strategy"
	}
	return rec, nil
}

func PersonalizedPrompt(req Request, stakingData *staking.Result) string {
	portfolioJSON := "Not provided"
	if req.Portfolio != nil {
		portfolioJSON = mustJSON(req.Portfolio, "")
	}
	var b strings.Builder
	b.WriteString("As a financial advisor specialized in Aptos DeFi, provide a personalized staking and investment strategy for a user with:\n")
	fmt.Fprintf(&b, "1. Amount to invest: %s APT\n", trimFloat(req.AmountAPT))
	fmt.Fprintf(&b, "2. Risk profile: %s\n", req.RiskProfile)
	fmt.Fprintf(&b, "3. Current portfolio: %s\n", portfolioJSON)
	fmt.Fprintf(&b, "Current staking rates:\n%s\n", mustJSON(stakingData, "  "))
	b.WriteString("Provide a JSON response with:\n")
	b.WriteString("- title: Recommendation title\n- summary: Brief summary\n")
	b.WriteString("- allocation: Array of {protocol, product, percentage, expectedApr}\n")
	b.WriteString("- totalApr: Blended APR\n- steps: Array of instructions\n- risks: Array of risks\n")
	b.WriteString("- mitigations: Array of mitigation strategies\n- additionalNotes: Additional insights")
	return b.String()
}

func GeneralPrompt(m Market) string {
	var protocols any = map[string]any{}
	if m.Staking != nil {
		protocols = m.Staking.Protocols
	}
	var coins []tokens.Token
	if m.Tokens != nil {
		coins = m.Tokens.Coins
		if len(coins) > 5 {
			coins = coins[:5]
		}
	}
	var articles []news.Article
	if m.News != nil {
		articles = m.News.Top(5)
	}

	var b strings.Builder
	b.WriteString("As a financial advisor specialized in Aptos DeFi, analyze the following real-time data to provide a general best investment strategy for users who have not yet connected their wallet:\n")
	fmt.Fprintf(&b, "1. Staking/Lending Rewards: %s\n", mustJSON(protocols, "  "))
	fmt.Fprintf(&b, "2. Token Overview: %s (top 5 tokens by movement)\n", mustJSON(nonNil(coins), "  "))
	fmt.Fprintf(&b, "3. Latest News: %s (top 5 news items)\n", mustJSON(nonNil(articles), "  "))
	b.WriteString("Provide a JSON response with:\n")
	b.WriteString("- title: \"General Market Strategy\"\n- summary: Brief summary of the strategy\n")
	b.WriteString("- allocation: Array of {protocol, product, percentage, expectedApr}\n")
	b.WriteString("- totalApr: Blended APR of the strategy\n- rationale: Explanation based on the data\n")
	b.WriteString("- risks: Array of potential risks")
	return b.String()
}

// Decode reads a reply leniently: numbers may arrive as strings such as
// "8.5%" and list fields may be a single string.
func Decode(doc jsonx.Document) *Recommendation {
	rec := &Recommendation{
		Title:           doc.String("title"),
		Summary:         doc.String("summary"),
		TotalAPR:        num(doc.Get("totalApr")),
		Rationale:       doc.String("rationale"),
		Steps:           strs(doc.Get("steps")),
		Risks:           strs(doc.Get("risks")),
		Mitigations:     strs(doc.Get("mitigations")),
		AdditionalNotes: doc.String("additionalNotes"),
	}
	for _, a := range doc.Get("allocation").Array() {
		rec.Allocation = append(rec.Allocation, Allocation{
			Protocol:    a.Get("protocol").String(),
			Product:     a.Get("product").String(),
			Percentage:  num(a.Get("percentage")),
			ExpectedAPR: num(a.Get("expectedApr")),
		})
	}
	if rec.Risks == nil {
		rec.Risks = []string{}
	}
	return rec
}

func num(v gjson.Result) float64 {
	if v.Type == gjson.String {
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"))
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return v.Float()
}

func strs(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	var out []string
	for _, s := range v.Array() {
		if s.IsObject() {
			out = append(out, s.Raw)
			continue
		}
		out = append(out, s.String())
	}
	return out
}

func mustJSON(v any, indent string) string {
	var (
		b   []byte
		err error
	)
	if indent == "" {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", indent)
	}
	if err != nil {
		return "null"
	}
	return string(b)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
