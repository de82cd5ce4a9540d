package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

const CellanaAddress = "0x4bf51972879e3b95c4781a5cdcb9e1ee24ef483e7d22f2d903626f126df62bd1"

// Cellana is a ve(3,3) DEX: swap fees plus gauge emissions.
func Cellana() Definition {
	return Definition{
		Name:        "cellana",
		DisplayName: "Cellana Finance",
		Address:     CellanaAddress,
		Products: []ProductSpec{
			{
				Type:      staking.AMM,
				Product:   "APT/USDC Volatile",
				Resources: []string{addrToken + "::liquidity_pool::"},
				APRRange:  "8-25%",
				// 15% fee yield
				Pool: &PoolEstimate{Volume24h: 4_000_000, FeeRate: 0.003, Liquidity: 29_200_000},
			},
			{
				Type:       staking.Yield,
				Product:    "CELL Gauge Rewards",
				Resources:  []string{addrToken + "::gauge::", addrToken + "::vote_manager::"},
				DefaultAPR: 12.0,
				APRRange:   "8-30%",
				Features:   []string{"Emission rewards", "veCELL boost"},
			},
		},
		Weights:          map[staking.ProductType]float64{staking.AMM: 50, staking.Yield: 50},
		BlendDescription: "50% pool fees, 50% gauge emissions",
	}
}

func NewCellana(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	return New(Cellana(), client, r, logger)
}
