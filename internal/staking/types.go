package staking

import (
	"context"
	"math"
	"time"
)

// ProductType names one kind of yield product a protocol can offer.
type ProductType string

const (
	Staking    ProductType = "staking"
	Lending    ProductType = "lending"
	AMM        ProductType = "amm"
	Yield      ProductType = "yield"
	Stablecoin ProductType = "stablecoin"
)

// ProductTypes lists every product type in display order.
var ProductTypes = []ProductType{Staking, Lending, AMM, Yield, Stablecoin}

// Offer is a single product's yield figures.
type Offer struct {
	APR         float64  `json:"apr"`
	Product     string   `json:"product"`
	TotalStaked string   `json:"totalStaked,omitempty"`
	APRRange    string   `json:"aprRange,omitempty"`
	Features    []string `json:"features,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
	// Source is "onchain" or "default".
	Source string `json:"source"`
}

// Blend is a protocol's weighted combination of its own offers.
type Blend struct {
	APR         float64                 `json:"apr"`
	Allocation  map[ProductType]float64 `json:"allocation"`
	Description string                  `json:"description,omitempty"`
}

// ProtocolRate is one protocol's snapshot for a single aggregation call.
// A failed protocol carries only Protocol and Error.
type ProtocolRate struct {
	Protocol        string    `json:"protocol"`
	DisplayName     string    `json:"displayName,omitempty"`
	Staking         *Offer    `json:"staking,omitempty"`
	Lending         *Offer    `json:"lending,omitempty"`
	AMM             *Offer    `json:"amm,omitempty"`
	Yield           *Offer    `json:"yield,omitempty"`
	Stablecoin      *Offer    `json:"stablecoin,omitempty"`
	BlendedStrategy *Blend    `json:"blendedStrategy,omitempty"`
	IsFallback      bool      `json:"isFallback,omitempty"`
	Error           string    `json:"error,omitempty"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// Offer returns the offer for t, or nil.
func (p *ProtocolRate) Offer(t ProductType) *Offer {
	if p == nil {
		return nil
	}
	switch t {
	case Staking:
		return p.Staking
	case Lending:
		return p.Lending
	case AMM:
		return p.AMM
	case Yield:
		return p.Yield
	case Stablecoin:
		return p.Stablecoin
	}
	return nil
}

// SetOffer stores o under t.
func (p *ProtocolRate) SetOffer(t ProductType, o *Offer) {
	switch t {
	case Staking:
		p.Staking = o
	case Lending:
		p.Lending = o
	case AMM:
		p.AMM = o
	case Yield:
		p.Yield = o
	case Stablecoin:
		p.Stablecoin = o
	}
}

// BlendedAPR is the blended strategy APR, or 0 when absent.
func (p *ProtocolRate) BlendedAPR() float64 {
	if p == nil || p.BlendedStrategy == nil {
		return 0
	}
	return p.BlendedStrategy.APR
}

// Failed reports whether the protocol produced only an error placeholder.
func (p *ProtocolRate) Failed() bool { return p == nil || p.Error != "" }

// Provider produces one protocol's rates. Implementations substitute their
// own defaults on upstream failure, so an error is unexpected.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (*ProtocolRate, error)
}

// BlendAPR is Σ apr×w / Σ w over the offers that exist and have a weight.
func BlendAPR(p *ProtocolRate, weights map[ProductType]float64) float64 {
	var sum, total float64
	for _, t := range ProductTypes {
		w := weights[t]
		o := p.Offer(t)
		if o == nil || w <= 0 {
			continue
		}
		sum += o.APR * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return Round2(sum / total)
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
