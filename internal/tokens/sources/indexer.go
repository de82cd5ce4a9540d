package sources

import (
	"context"
	"strings"

	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

const aptLogo = "https://cryptologos.cc/logos/aptos-apt-logo.svg?v=026"

// Fixed APT figures used when only on-chain balances are known.
const (
	nativeRisk       = 4.2
	nativeVolatility = "Medium"
)

// NativeToken is the APT entry with placeholder market figures.
func NativeToken() tokens.Raw {
	return tokens.Raw{
		ID:         "aptos",
		Symbol:     "APT",
		Name:       "Aptos",
		LaunchDate: "2022-10-17",
		Category:   tokens.CategoryL1,
		Note:       "Layer 1 blockchain focused on safety and scalability",
		Image:      aptLogo,
	}
}

// BalanceQuerier is the part of aptos.Indexer used here.
type BalanceQuerier interface {
	TopBalances(ctx context.Context, limit int) ([]aptos.AssetBalance, error)
}

// Indexer lists assets seen in the largest on-chain balances. It has no
// market data, so every entry carries placeholder figures.
type Indexer struct {
	ix    BalanceQuerier
	limit int
	retry *retry.Fetcher
}

func NewIndexer(ix BalanceQuerier, r *retry.Fetcher) *Indexer {
	if r == nil {
		r = retry.Default()
	}
	return &Indexer{ix: ix, limit: 10, retry: r}
}

func (s *Indexer) Name() string { return "aptos-indexer" }

func (s *Indexer) Fetch(ctx context.Context, _ tokens.Input) ([]tokens.Raw, error) {
	balances, err := retry.Fetch(ctx, s.retry, func(ctx context.Context) ([]aptos.AssetBalance, error) {
		return s.ix.TopBalances(ctx, s.limit)
	})
	if err != nil {
		return nil, err
	}

	apt := NativeToken()
	apt.Change24h = f64(0)
	apt.Risk = f64(nativeRisk)
	apt.Volatility = nativeVolatility
	raws := []tokens.Raw{apt}
	seen := map[string]bool{"aptos": true}
	for _, b := range balances {
		if b.AssetType == aptos.NativeCoinType || b.Metadata == nil || b.Metadata.Symbol == "" {
			continue
		}
		id := strings.ToLower(b.Metadata.Symbol)
		if seen[id] {
			continue
		}
		seen[id] = true
		raws = append(raws, tokens.Raw{
			ID:     id,
			Symbol: b.Metadata.Symbol,
			Name:   b.Metadata.Name,
		})
	}
	return raws, nil
}
