package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

const AmnisAddress = "0x111ae3e5bc816a5e63c2da97d0aa3886519e0cd5e4b046659fa35796bd11542a"

// Amnis is the liquid staking protocol behind amAPT and stAPT.
func Amnis() Definition {
	return Definition{
		Name:        "amnis",
		DisplayName: "Amnis",
		Address:     AmnisAddress,
		Products: []ProductSpec{
			{
				Type:        staking.Staking,
				Product:     "stAPT",
				Resources:   []string{addrToken + "::stapt_token::StakedApt", addrToken + "::staking"},
				DefaultAPR:  8.5,
				TotalStaked: "21,703,047",
				Features:    []string{"Autocompounding", "Immediate liquidity"},
			},
			{
				Type:       staking.Lending,
				Product:    "amAPT/stAPT",
				Resources:  []string{addrToken + "::amapt_token::AmnisApt"},
				DefaultAPR: 8.0,
				APRRange:   "5-10%",
				Platforms:  []string{"Aries", "Meso", "Echelon"},
			},
			{
				Type:      staking.AMM,
				Product:   "amAPT/APT",
				Resources: []string{addrToken + "::router::Pool", addrToken + "::pool"},
				APRRange:  "5-15%",
				Platforms: []string{"Pancakeswap", "Liquidswap"},
				// 10% fee yield
				Pool: &PoolEstimate{Volume24h: 2_000_000, FeeRate: 0.0025, Liquidity: 18_250_000},
			},
		},
		Weights:          map[staking.ProductType]float64{staking.Staking: 50, staking.Lending: 30, staking.AMM: 20},
		BlendDescription: "50% stAPT staking, 30% amAPT lending, 20% amAPT/APT liquidity",
	}
}

func NewAmnis(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	return New(Amnis(), client, r, logger)
}
