package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

const ThalaAddress = "0xfaf4e633ae9eb31366c9ca24214231760926576c7b625313b3688b5e900731f6"

// epochsPerYear is the number of two-hour staking epochs in a year.
const epochsPerYear = 4380

// Thala runs thAPT/sthAPT staking, the MOD stablecoin CDP and ThalaSwap.
func Thala() Definition {
	return Definition{
		Name:           "thala",
		DisplayName:    "Thala",
		Address:        ThalaAddress,
		RequireStaking: true,
		Products: []ProductSpec{
			{
				Type:        staking.Staking,
				Product:     "sthAPT",
				Resources:   []string{"staking"},
				Extract:     thalaEpochAPR,
				DefaultAPR:  7.5,
				TotalStaked: "15,482,631",
				Features:    []string{"Boosted yields", "Governance"},
			},
			{
				Type:       staking.Lending,
				Product:    "MOD CDP",
				Resources:  []string{addrToken + "::vault::", addrToken + "::lending"},
				DefaultAPR: 8.0,
				Features:   []string{"Borrow at 5%, lend collateral"},
			},
			{
				Type:      staking.AMM,
				Product:   "ThalaSwap",
				Resources: []string{addrToken + "::stable_pool::", addrToken + "::weighted_pool::"},
				APRRange:  "5-15%",
				Features:  []string{"Stable pools"},
				// 10% fee yield
				Pool: &PoolEstimate{Volume24h: 3_000_000, FeeRate: 0.003, Liquidity: 32_850_000},
			},
			{
				Type:       staking.Stablecoin,
				Product:    "MOD Stability Pool",
				Resources:  []string{addrToken + "::stability_pool::"},
				DefaultAPR: 6.0,
				Features:   []string{"Liquidation rewards"},
			},
		},
		Weights:          map[staking.ProductType]float64{staking.Staking: 40, staking.Lending: 30, staking.AMM: 30},
		BlendDescription: "40% sthAPT staking, 30% MOD CDP, 30% ThalaSwap liquidity",
	}
}

// thalaEpochAPR derives APR from per-epoch rewards over the staked total.
func thalaEpochAPR(r aptos.Resource) (float64, bool) {
	rewards, ok := number(r.Field("rewards_per_epoch"))
	if !ok {
		return 0, false
	}
	staked, ok := number(firstField(r, totalStakedFields))
	if !ok || staked <= 0 {
		return 0, false
	}
	return staking.Round2(rewards / staked * epochsPerYear * 100), true
}

func NewThala(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	return New(Thala(), client, r, logger)
}
