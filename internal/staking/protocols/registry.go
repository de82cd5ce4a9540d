package protocols

import (
	"log/slog"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
)

// All returns every supported protocol in registration order.
func All(client ResourceReader, r *retry.Fetcher, logger *slog.Logger) []*Protocol {
	return []*Protocol{
		NewAmnis(client, r, logger),
		NewThala(client, r, logger),
		NewEcho(client, r, logger),
		NewAries(client, r, logger),
		NewCellana(client, r, logger),
	}
}
