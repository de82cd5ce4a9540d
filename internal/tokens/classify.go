package tokens

import (
	"fmt"
	"math"
	"strings"
)

// riskTier adds Delta when the measured value crosses Above (or falls
// below Below).
type riskTier struct {
	Above float64
	Below float64
	Delta float64
}

// Risk score tuning. Tiers are checked in order and the first match applies.
const (
	riskBase = 5.0
	riskMin  = 1.0
	riskMax  = 10.0
)

var (
	marketCapTiers = []riskTier{
		{Below: 1_000_000, Delta: 3},
		{Below: 10_000_000, Delta: 2},
		{Below: 100_000_000, Delta: 1},
		{Above: 1_000_000_000, Delta: -1},
	}
	changeTiers = []riskTier{
		{Above: 20, Delta: 1.5},
		{Above: 10, Delta: 1},
		{Above: 5, Delta: 0.5},
	}
	turnoverTiers = []riskTier{
		{Above: 0.5, Delta: -0.5},
		{Above: 0.2, Delta: -0.3},
	}
)

func tierDelta(tiers []riskTier, v float64) float64 {
	for _, t := range tiers {
		if (t.Below > 0 && v < t.Below) || (t.Above > 0 && v > t.Above) {
			return t.Delta
		}
	}
	return 0
}

// RiskScore starts at riskBase and adjusts for size, momentum and
// liquidity. An unknown market cap (<= 0) lands in the smallest tier, and
// turnover is then measured against a cap of 1.
func RiskScore(marketCap float64, change24h *float64, volume24h float64) float64 {
	score := riskBase + tierDelta(marketCapTiers, marketCap)
	if change24h != nil {
		score += tierDelta(changeTiers, math.Abs(*change24h))
	}
	capital := marketCap
	if capital <= 0 {
		capital = 1
	}
	if volume24h > 0 {
		score += tierDelta(turnoverTiers, volume24h/capital)
	}

	score = math.Max(riskMin, math.Min(riskMax, score))
	return math.Round(score*10) / 10
}

type categoryRule struct {
	category Category
	keywords []string
	// symbolFragments match anywhere in the lowercased symbol.
	symbolFragments []string
}

// Order matters: the first matching rule wins.
var categoryRules = []categoryRule{
	{CategoryLiquidStaking, []string{"staking", "staked"}, []string{"st"}},
	{CategoryDEX, []string{"swap", "dex"}, nil},
	{CategoryNFT, []string{"nft"}, nil},
	{CategoryGameFi, []string{"game", "play"}, nil},
	{CategoryStablecoin, []string{"stable", "usd"}, nil},
	{CategoryLending, []string{"lend", "borrow"}, nil},
	{CategoryMeme, []string{"doge", "shib", "pepe", "meme"}, nil},
}

// Categorize applies the keyword rules to name, symbol and tags. A valid
// hint from the source takes precedence.
func Categorize(name, symbol string, tags []string, hint Category) Category {
	if hint != "" && ValidCategory(hint) {
		return hint
	}
	sym := strings.ToLower(symbol)
	haystack := strings.ToLower(name + " " + symbol + " " + strings.Join(tags, " "))
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.category
			}
		}
		for _, frag := range rule.symbolFragments {
			if strings.Contains(sym, frag) {
				return rule.category
			}
		}
	}
	return CategoryDeFi
}

// Volatility labels the magnitude of the 24h change.
func Volatility(change24h *float64) string {
	if change24h == nil {
		return "Low"
	}
	abs := math.Abs(*change24h)
	switch {
	case abs > 50:
		return "Extreme"
	case abs > 30:
		return "Very High"
	case abs > 15:
		return "High"
	case abs > 5:
		return "Medium"
	default:
		return "Low"
	}
}

// Note writes a one-line description for tokens without one.
func Note(name string, change24h *float64) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "staking") || strings.Contains(lower, "staked"):
		return "Liquid staking token on Aptos"
	case strings.Contains(lower, "swap"):
		return "Decentralized exchange token for Aptos"
	case strings.Contains(lower, "lend"):
		return "Lending protocol token for Aptos"
	}
	change := 0.0
	if change24h != nil {
		change = *change24h
	}
	direction := "growth"
	if change < 0 {
		direction = "decline"
	}
	return fmt.Sprintf("Token in the Aptos ecosystem with %.2f%% %s in 24h", math.Abs(change), direction)
}

// Classify derives every computed field. It is a pure function of r.
func Classify(r Raw) Token {
	t := Token{
		ID:             r.ID,
		Symbol:         strings.ToUpper(r.Symbol),
		Name:           r.Name,
		MarketCap:      FormatUSD(r.MarketCap),
		MarketCapValue: r.MarketCap,
		Volume24h:      FormatUSD(r.Volume24h),
		RiskScore:      RiskScore(r.MarketCap, r.Change24h, r.Volume24h),
		LaunchDate:     r.LaunchDate,
		Category:       Categorize(r.Name, r.Symbol, r.Tags, r.Category),
		Volatility:     Volatility(r.Change24h),
		Note:           r.Note,
		Image:          r.Image,
		Source:         r.Source,
	}
	if r.Price != nil {
		t.Price = Price{Value: *r.Price, Known: true}
	}
	if r.Change24h != nil {
		t.Change24h = math.Round(*r.Change24h*100) / 100
	}
	if r.Risk != nil {
		t.RiskScore = math.Max(riskMin, math.Min(riskMax, *r.Risk))
	}
	if r.Volatility != "" {
		t.Volatility = r.Volatility
	}
	if t.LaunchDate == "" {
		t.LaunchDate = "Unknown"
	}
	if t.Note == "" {
		t.Note = Note(r.Name, r.Change24h)
	}
	return t
}
