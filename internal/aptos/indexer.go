package aptos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const topBalancesQuery = `query TopBalances($limit: Int!) {
  current_fungible_asset_balances(limit: $limit, order_by: {amount: desc}) {
    asset_type
    amount
    metadata {
      name
      symbol
      decimals
    }
  }
}`

// AssetBalance is one row of the indexer's balance table.
type AssetBalance struct {
	AssetType string  `json:"asset_type"`
	Amount    float64 `json:"amount"`
	Metadata  *struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"metadata"`
}

// Indexer queries the Aptos indexer GraphQL endpoint.
type Indexer struct {
	url  string
	http *upstream.Client
}

func NewIndexer(indexerURL, apiKey string) *Indexer {
	if indexerURL == "" {
		indexerURL = DefaultIndexerURL
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Indexer{
		url: indexerURL,
		http: upstream.New("aptos-indexer", upstream.Options{
			Timeout:       10 * time.Second,
			RatePerSecond: 5,
			Burst:         5,
			Headers:       headers,
		}),
	}
}

type graphqlResponse struct {
	Data struct {
		Balances []AssetBalance `json:"current_fungible_asset_balances"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// TopBalances returns the largest fungible asset balances by raw amount.
func (ix *Indexer) TopBalances(ctx context.Context, limit int) ([]AssetBalance, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"query":     topBalancesQuery,
		"variables": map[string]any{"limit": limit},
	}
	var resp graphqlResponse
	if err := ix.http.PostJSON(ctx, ix.url, body, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("aptos-indexer graphql: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Data.Balances) == 0 {
		return nil, errors.New("aptos-indexer: no balances returned")
	}
	return resp.Data.Balances, nil
}
