package tokens

import (
	"encoding/json"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Category is a coarse token classification.
type Category string

const (
	CategoryDeFi          Category = "DeFi"
	CategoryNFT           Category = "NFT"
	CategoryGameFi        Category = "GameFi"
	CategoryL1            Category = "L1"
	CategoryDEX           Category = "DEX"
	CategoryStablecoin    Category = "Stablecoin"
	CategoryLiquidStaking Category = "Liquid Staking"
	CategoryLending       Category = "Lending"
	CategoryNewProject    Category = "New Project"
	CategoryMeme          Category = "Meme Coin"
)

// Categories lists every category.
var Categories = []Category{
	CategoryDeFi, CategoryNFT, CategoryGameFi, CategoryL1, CategoryDEX,
	CategoryStablecoin, CategoryLiquidStaking, CategoryLending, CategoryNewProject, CategoryMeme,
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Raw is a token record as delivered by one source, before derived fields
// are computed. Zero MarketCap and nil Price/Change24h mean unknown.
type Raw struct {
	ID         string
	Symbol     string
	Name       string
	MarketCap  float64
	Price      *float64
	Change24h  *float64
	Volume24h  float64
	LaunchDate string
	Image      string
	Tags       []string
	// Category and Note are optional hints from curated or synthesized sources.
	Category Category
	Note     string
	// Risk and Volatility replace the computed values when set.
	Risk       *float64
	Volatility string
	Source     string
}

func (r Raw) Key() string { return r.ID }

// Price marshals as a number, or "Unknown" when not known.
type Price struct {
	Value float64
	Known bool
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return []byte(`"Unknown"`), nil
	}
	return json.Marshal(p.Value)
}

func (p *Price) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*p = Price{}
		return nil
	}
	*p = Price{Value: v, Known: true}
	return nil
}

// Token is a fully classified token.
type Token struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Price          Price    `json:"price"`
	MarketCap      string   `json:"marketCap"`
	MarketCapValue float64  `json:"marketCapValue"`
	Change24h      float64  `json:"change24h"`
	Volume24h      string   `json:"volume24h"`
	RiskScore      float64  `json:"riskScore"`
	LaunchDate     string   `json:"launchDate"`
	Category       Category `json:"category"`
	Volatility     string   `json:"volatility"`
	Note           string   `json:"note"`
	Image          string   `json:"image,omitempty"`
	Source         string   `json:"source"`
}

// Launch parses LaunchDate; ok is false for unknown or malformed dates.
func (t Token) Launch() (time.Time, bool) {
	if t.LaunchDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01"} {
		if ts, err := time.Parse(layout, t.LaunchDate); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FormatUSD renders whole dollars with thousands separators, e.g. $1,234,567.
func FormatUSD(v float64) string {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "Unknown"
	}
	return "$" + humanize.Comma(int64(math.Round(v)))
}
