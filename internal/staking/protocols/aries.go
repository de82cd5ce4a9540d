package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

const AriesAddress = "0x9770fa9c725cbd97eb50b2be5f7416efdfd1f1554beb0750d4dae4c64e860da3"

// Aries is a money market with APT and stablecoin reserves.
func Aries() Definition {
	return Definition{
		Name:        "aries",
		DisplayName: "Aries Markets",
		Address:     AriesAddress,
		Products: []ProductSpec{
			{
				Type:       staking.Lending,
				Product:    "APT Supply",
				Resources:  []string{addrToken + "::reserve::Reserves"},
				DefaultAPR: 6.5,
				APRRange:   "4-9%",
			},
			{
				Type:       staking.Stablecoin,
				Product:    "USDC Supply",
				Resources:  []string{addrToken + "::reserve::ReserveDetails"},
				DefaultAPR: 9.0,
				APRRange:   "6-12%",
				Features:   []string{"No APT price exposure"},
			},
		},
		Weights:          map[staking.ProductType]float64{staking.Lending: 60, staking.Stablecoin: 40},
		BlendDescription: "60% APT supply, 40% USDC supply",
	}
}

func NewAries(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	return New(Aries(), client, r, logger)
}
