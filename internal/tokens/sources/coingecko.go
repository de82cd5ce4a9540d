package sources

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const coinGeckoAPI = "https://api.coingecko.com/api/v3"

// AptosEcosystemIDs are the CoinGecko ids queried for the token list.
var AptosEcosystemIDs = []string{
	"aptos",
	"amnis-aptos",
	"layerzero-bridged-usdc-aptos",
	"amnis-staked-aptos-coin",
	"layerzero-bridged-usdt-aptos",
	"tortuga-staked-aptos",
	"ditto-staked-aptos",
	"wrapped-aptos-universal",
	"aptos-launch-token",
	"layerzero-bridged-wbtc-aptos",
	"layerzero-bridged-weth-aptos",
}

type coinGeckoMarket struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Image        string   `json:"image"`
	CurrentPrice *float64 `json:"current_price"`
	MarketCap    float64  `json:"market_cap"`
	TotalVolume  float64  `json:"total_volume"`
	Change24h    *float64 `json:"price_change_percentage_24h"`
}

// CoinGecko is the primary market data source.
type CoinGecko struct {
	baseURL string
	apiKey  string
	ids     []string
	client  *upstream.Client
	retry   *retry.Fetcher
}

func NewCoinGecko(baseURL, apiKey string, r *retry.Fetcher) *CoinGecko {
	if baseURL == "" {
		baseURL = coinGeckoAPI
	}
	if r == nil {
		r = retry.Default()
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ids:     AptosEcosystemIDs,
		client: upstream.New("coingecko", upstream.Options{
			Timeout: 5 * time.Second,
			// public tier allows roughly 30 calls per minute
			RatePerSecond: 0.5,
			Burst:         3,
		}),
		retry: r,
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) Fetch(ctx context.Context, _ tokens.Input) ([]tokens.Raw, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(c.ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(len(c.ids)))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	endpoint := c.baseURL + "/coins/markets?" + q.Encode()

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.apiKey}
	}

	markets, err := retry.Fetch(ctx, c.retry, func(ctx context.Context) ([]coinGeckoMarket, error) {
		var out []coinGeckoMarket
		err := c.client.GetJSON(ctx, endpoint, headers, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, errors.New("coingecko: empty market list")
	}

	raws := make([]tokens.Raw, 0, len(markets))
	for _, m := range markets {
		raws = append(raws, tokens.Raw{
			ID:        m.ID,
			Symbol:    m.Symbol,
			Name:      m.Name,
			MarketCap: m.MarketCap,
			Price:     m.CurrentPrice,
			Change24h: m.Change24h,
			Volume24h: m.TotalVolume,
			Image:     m.Image,
			Source:    c.Name(),
		})
	}
	return raws, nil
}
