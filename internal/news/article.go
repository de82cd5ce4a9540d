// Package news collects recent crypto headlines with a bias toward one
// chain's ecosystem.
package news

import "time"

// Article is a normalised news item.
type Article struct {
	Headline       string    `json:"headline"`
	Source         string    `json:"source"`
	Date           time.Time `json:"date"`
	URL            string    `json:"url,omitempty"`
	Summary        string    `json:"summary"`
	Relevance      string    `json:"relevance"`
	Tags           []string  `json:"tags"`
	IsAptosRelated bool      `json:"isAptosRelated"`
}

// Feed is the result of one aggregation.
type Feed struct {
	Articles    []Article `json:"articles"`
	IsFallback  bool      `json:"isFallback,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Top returns at most n articles.
func (f *Feed) Top(n int) []Article {
	if f == nil {
		return nil
	}
	if len(f.Articles) <= n {
		return f.Articles
	}
	return f.Articles[:n]
}

// Fallback is the canned set served when no live news is available.
func Fallback(now time.Time) *Feed {
	mk := func(headline, source, summary, relevance string, tags ...string) Article {
		return Article{
			Headline:       headline,
			Source:         source,
			Date:           now,
			Summary:        summary,
			Relevance:      relevance,
			Tags:           tags,
			IsAptosRelated: true,
		}
	}
	return &Feed{
		Articles: []Article{
			mk("Aptos DeFi Ecosystem Continues to Grow in 2025", "Crypto News",
				"DeFi ecosystem on Aptos attracts more developers and users", "high", "aptos", "defi", "adoption"),
			mk("Liquid Staking Products on Aptos Reach New ATH", "DeFi Insight",
				"Amnis, Thala, and Tortuga see record TVL", "high", "aptos", "staking", "defi"),
			mk("APT Price Analysis: Technical and On-Chain Indicators", "Market Analysis",
				"Aptos price movement analysis and predictions", "medium", "aptos", "market", "analysis"),
			mk("New Yield Farming Opportunities Emerge on Aptos", "DeFi Prime",
				"Latest yield strategies for Aptos holders", "high", "aptos", "yield", "farming"),
			mk("Staking vs. Lending: What's Best for Your APT", "Crypto Education",
				"Comparing risk-adjusted returns across strategies", "medium", "aptos", "staking", "lending"),
		},
		IsFallback:  true,
		LastUpdated: now,
	}
}
