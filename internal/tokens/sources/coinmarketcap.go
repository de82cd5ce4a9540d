package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const coinMarketCapAPI = "https://pro-api.coinmarketcap.com"

type cmcListing struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	Slug      string   `json:"slug"`
	DateAdded string   `json:"date_added"`
	Tags      []string `json:"tags"`
	Platform  *struct {
		Slug string `json:"slug"`
	} `json:"platform"`
	Quote struct {
		USD struct {
			Price            *float64 `json:"price"`
			Volume24h        float64  `json:"volume_24h"`
			PercentChange24h *float64 `json:"percent_change_24h"`
			MarketCap        float64  `json:"market_cap"`
		} `json:"USD"`
	} `json:"quote"`
}

// CoinMarketCap is the secondary market data source. It needs an API key.
type CoinMarketCap struct {
	baseURL string
	apiKey  string
	client  *upstream.Client
	retry   *retry.Fetcher
}

func NewCoinMarketCap(baseURL, apiKey string, r *retry.Fetcher) *CoinMarketCap {
	if baseURL == "" {
		baseURL = coinMarketCapAPI
	}
	if r == nil {
		r = retry.Default()
	}
	return &CoinMarketCap{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: upstream.New("coinmarketcap", upstream.Options{
			Timeout:       5 * time.Second,
			RatePerSecond: 0.5,
			Burst:         1,
		}),
		retry: r,
	}
}

func (c *CoinMarketCap) Name() string { return "coinmarketcap" }

// Configured gates the step on the API key.
func (c *CoinMarketCap) Configured() bool { return c.apiKey != "" }

func (c *CoinMarketCap) Fetch(ctx context.Context, _ tokens.Input) ([]tokens.Raw, error) {
	if !c.Configured() {
		return nil, errors.New("coinmarketcap: no API key")
	}
	endpoint := c.baseURL + "/v1/cryptocurrency/listings/latest?start=1&limit=5000&convert=USD&aux=platform,tags,date_added"
	headers := map[string]string{"X-CMC_PRO_API_KEY": c.apiKey}

	listings, err := retry.Fetch(ctx, c.retry, func(ctx context.Context) ([]cmcListing, error) {
		var resp struct {
			Data []cmcListing `json:"data"`
		}
		err := c.client.GetJSON(ctx, endpoint, headers, &resp)
		return resp.Data, err
	})
	if err != nil {
		return nil, err
	}

	var raws []tokens.Raw
	for _, l := range listings {
		if !onAptos(l) {
			continue
		}
		launch := l.DateAdded
		if len(launch) >= 10 {
			launch = launch[:10]
		}
		raws = append(raws, tokens.Raw{
			ID:         "cmc-" + l.Slug,
			Symbol:     l.Symbol,
			Name:       l.Name,
			MarketCap:  l.Quote.USD.MarketCap,
			Price:      l.Quote.USD.Price,
			Change24h:  l.Quote.USD.PercentChange24h,
			Volume24h:  l.Quote.USD.Volume24h,
			LaunchDate: launch,
			Tags:       l.Tags,
			Source:     c.Name(),
		})
	}
	if len(raws) == 0 {
		return nil, errors.New("coinmarketcap: no Aptos listings")
	}
	return raws, nil
}

func onAptos(l cmcListing) bool {
	if l.Slug == "aptos" {
		return true
	}
	if l.Platform != nil && l.Platform.Slug == "aptos" {
		return true
	}
	for _, t := range l.Tags {
		if t == "aptos-ecosystem" {
			return true
		}
	}
	return false
}
