package staking

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileAggressive   = "aggressive"
)

// Holdings summarises a wallet for risk profiling.
type Holdings struct {
	TotalValueUSD float64 `json:"totalValueUsd"`
	APT           float64 `json:"apt"`
	StakedAPT     float64 `json:"stakedApt"`
	LiquidityUSD  float64 `json:"liquidityUsd"`
}

// Thresholds are the USD portfolio values that move the risk profile.
type Thresholds struct {
	Conservative float64
	Balanced     float64
	Aggressive   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Conservative: 1000, Balanced: 10000, Aggressive: 50000}
}

// RiskProfileFor picks a profile: large portfolios go aggressive, existing
// stakers get at least balanced, and small wallets stay conservative.
func RiskProfileFor(h Holdings, th Thresholds) string {
	switch {
	case h.TotalValueUSD > th.Balanced || h.StakedAPT > 0:
		if h.TotalValueUSD > th.Aggressive {
			return ProfileAggressive
		}
		return ProfileBalanced
	case h.TotalValueUSD < th.Conservative:
		return ProfileConservative
	default:
		return ProfileBalanced
	}
}

// Earnings are projected returns as two-decimal USD strings.
type Earnings struct {
	Monthly string `json:"monthly"`
	Yearly  string `json:"yearly"`
}

// ActionItem is a concrete next step for the wallet owner.
type ActionItem struct {
	Action      string      `json:"action"`
	Protocol    string      `json:"protocol,omitempty"`
	ProductType ProductType `json:"productType,omitempty"`
	AmountAPT   float64     `json:"amountApt,omitempty"`
	Description string      `json:"description"`
}

// Recommendation is the personalised view of an aggregation result.
type Recommendation struct {
	RiskProfile           string       `json:"riskProfile"`
	RecommendedStrategy   Strategy     `json:"recommendedStrategy"`
	PotentialEarnings     Earnings     `json:"potentialEarnings"`
	CurrentHoldings       Holdings     `json:"currentHoldings"`
	ActionItems           []ActionItem `json:"actionItems"`
	AlternativeStrategies []Strategy   `json:"alternativeStrategies"`
	LastUpdated           time.Time    `json:"lastUpdated"`
}

// Personalize maps holdings onto one of the evaluated strategies.
func Personalize(res *Result, h Holdings, th Thresholds) *Recommendation {
	profile := RiskProfileFor(h, th)
	strategy, ok := res.Strategies[profile]
	if !ok && len(res.StrategyOrder) > 0 {
		strategy = res.Strategies[res.StrategyOrder[0]]
	}

	yearly := h.TotalValueUSD * strategy.APR / 100
	rec := &Recommendation{
		RiskProfile:         profile,
		RecommendedStrategy: strategy,
		PotentialEarnings: Earnings{
			Monthly: fmt.Sprintf("%.2f", yearly/12),
			Yearly:  fmt.Sprintf("%.2f", yearly),
		},
		CurrentHoldings: h,
		ActionItems:     actionItems(strategy, h),
		LastUpdated:     res.LastUpdated,
	}

	for _, s := range res.OrderedStrategies() {
		if s.Name != strategy.Name {
			rec.AlternativeStrategies = append(rec.AlternativeStrategies, s)
		}
	}
	sort.SliceStable(rec.AlternativeStrategies, func(i, j int) bool {
		return rec.AlternativeStrategies[i].APR > rec.AlternativeStrategies[j].APR
	})
	return rec
}

var actionVerbs = map[ProductType]string{
	Staking:    "Stake",
	Lending:    "Lend",
	AMM:        "Provide Liquidity",
	Yield:      "Deposit",
	Stablecoin: "Deposit",
}

func actionItems(s Strategy, h Holdings) []ActionItem {
	if h.APT <= 0 {
		return []ActionItem{{
			Action:      "Fund Wallet",
			Description: "Add APT to your wallet to start earning yield",
		}}
	}
	items := make([]ActionItem, 0, len(s.Allocation))
	for _, a := range s.Allocation {
		amount := h.APT * a.Percentage / 100
		verb := actionVerbs[a.ProductType]
		desc := fmt.Sprintf("%s %.2f APT with %s", verb, amount, titleCase(a.Protocol))
		if a.Product != "" {
			desc += " (" + a.Product + ")"
		}
		if a.Resolved {
			desc += fmt.Sprintf(" at %.2f%% APR", a.APR)
		}
		items = append(items, ActionItem{
			Action:      verb,
			Protocol:    a.Protocol,
			ProductType: a.ProductType,
			AmountAPT:   Round2(amount),
			Description: desc,
		})
	}
	return items
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
