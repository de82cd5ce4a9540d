package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

const EchoAddress = "0xeab7ea4d635b6b6add79d5045c4a45d8148d88287b1cfa1c3b6a4b56f46839ed"

// Echo is a lending market; a missing lending resource keeps the default
// APR rather than failing the protocol.
func Echo() Definition {
	return Definition{
		Name:        "echo",
		DisplayName: "Echo",
		Address:     EchoAddress,
		Products: []ProductSpec{
			{
				Type:        staking.Lending,
				Product:     "Echo Lending",
				Resources:   []string{"lending"},
				DefaultAPR:  5.0,
				TotalStaked: "7,201",
			},
		},
		Weights:          map[staking.ProductType]float64{staking.Lending: 100},
		BlendDescription: "100% lending",
	}
}

func NewEcho(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	return New(Echo(), client, r, logger)
}
