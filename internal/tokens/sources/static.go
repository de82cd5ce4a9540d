package sources

import (
	"context"

	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

// Static is the last step of the chain. It never fails.
type Static struct{}

func (Static) Name() string { return "static" }

func (Static) Fetch(context.Context, tokens.Input) ([]tokens.Raw, error) {
	return StaticTokens(), nil
}

func f64(v float64) *float64 { return &v }

// StaticTokens returns a fresh copy of the curated token set.
func StaticTokens() []tokens.Raw {
	apt := NativeToken()
	apt.Price = f64(12.5)
	apt.MarketCap = 5_600_000_000
	apt.Volume24h = 180_000_000
	apt.Change24h = f64(0)

	return []tokens.Raw{
		apt,
		{
			ID:         "amnis-staked-aptos-coin",
			Symbol:     "stAPT",
			Name:       "Amnis Staked Aptos Coin",
			Price:      f64(13.2),
			MarketCap:  150_000_000,
			Volume24h:  2_000_000,
			Change24h:  f64(0),
			LaunchDate: "2023-11-20",
			Category:   tokens.CategoryLiquidStaking,
			Note:       "Liquid staking token on Aptos",
			Image:      "https://assets.coingecko.com/coins/images/32782/large/stAPT.png",
		},
		{
			ID:         "thala",
			Symbol:     "THL",
			Name:       "Thala",
			Price:      f64(0.45),
			MarketCap:  18_000_000,
			Volume24h:  600_000,
			Change24h:  f64(0),
			LaunchDate: "2023-03-01",
			Category:   tokens.CategoryDeFi,
			Note:       "Governance token of the Thala DeFi suite",
			Image:      "https://assets.coingecko.com/coins/images/31060/large/thala.png",
		},
		{
			ID:         "thala-mod",
			Symbol:     "MOD",
			Name:       "Move Dollar",
			Price:      f64(1),
			MarketCap:  25_000_000,
			Volume24h:  1_200_000,
			Change24h:  f64(0),
			LaunchDate: "2023-03-01",
			Category:   tokens.CategoryStablecoin,
			Note:       "Overcollateralized stablecoin issued by Thala",
		},
		{
			ID:         "layerzero-bridged-usdc-aptos",
			Symbol:     "zUSDC",
			Name:       "LayerZero Bridged USDC",
			Price:      f64(1),
			MarketCap:  40_000_000,
			Volume24h:  5_000_000,
			Change24h:  f64(0),
			LaunchDate: "2022-10-19",
			Category:   tokens.CategoryStablecoin,
			Note:       "Bridged USDC on Aptos",
		},
	}
}
