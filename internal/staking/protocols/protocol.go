// Package protocols implements staking.Provider for each supported Aptos
// DeFi protocol. A protocol is described declaratively by a Definition;
// Protocol turns it into live figures from the protocol's contract account
// and falls back to the Definition's defaults when the read fails.
package protocols

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
)

// addrToken is replaced by the contract address in resource patterns.
const addrToken = "{addr}"

// maxSaneAPR rejects on-chain values that are clearly not percentages.
const maxSaneAPR = 1000

// Generic field paths tried on matched resources.
var (
	aprFields         = []string{"apr", "current_apr", "supply_apr", "apy"}
	totalStakedFields = []string{"totalStaked", "total_staked"}
	volumeFields      = []string{"volume_24h", "daily_volume"}
	liquidityFields   = []string{"total_liquidity", "reserve_usd", "tvl"}
	feeBpsFields      = []string{"swap_fee_bps", "fee_bps"}
)

// PoolEstimate holds fallback figures for the AMM fee-yield formula.
type PoolEstimate struct {
	Volume24h float64
	Liquidity float64
	FeeRate   float64
}

// ProductSpec describes one product and where its APR lives on-chain.
type ProductSpec struct {
	Type    staking.ProductType
	Product string
	// Resource type substrings; addrToken expands to the contract address.
	Resources []string
	// Extract overrides the generic APR field lookup.
	Extract     func(r aptos.Resource) (float64, bool)
	DefaultAPR  float64
	TotalStaked string
	APRRange    string
	Features    []string
	Platforms   []string
	// Pool is set for AMM products.
	Pool *PoolEstimate
}

// Definition is the full static description of a protocol.
type Definition struct {
	Name        string
	DisplayName string
	Address     string
	Products    []ProductSpec
	Weights     map[staking.ProductType]float64
	// RequireStaking fails the read when no staking resource matches.
	RequireStaking   bool
	BlendDescription string
}

// ResourceReader is the part of aptos.Client used here.
type ResourceReader interface {
	AccountResources(ctx context.Context, addr string) ([]aptos.Resource, error)
}

// Protocol is a staking.Provider backed by a Definition.
type Protocol struct {
	def    Definition
	client ResourceReader
	retry  *retry.Fetcher
	logger *slog.Logger
	now    func() time.Time
}

func New(def Definition, client ResourceReader, r *retry.Fetcher, logger *slog.Logger) *Protocol {
	if r == nil {
		r = retry.Default()
	}
	return &Protocol{
		def:    def,
		client: client,
		retry:  r,
		logger: logger.With("protocol", def.Name),
		now:    time.Now,
	}
}

func (p *Protocol) Name() string { return p.def.Name }

func (p *Protocol) Definition() Definition { return p.def }

// Fetch reads the contract account and never returns an error: any failure
// yields the full default rate with IsFallback set.
func (p *Protocol) Fetch(ctx context.Context) (*staking.ProtocolRate, error) {
	resources, err := retry.Fetch(ctx, p.retry, func(ctx context.Context) ([]aptos.Resource, error) {
		return p.client.AccountResources(ctx, p.def.Address)
	})
	if err != nil {
		p.logger.Warn("using default rates", "error", err)
		metrics.ProtocolDefaultsTotal.WithLabelValues(p.def.Name).Inc()
		return p.Defaults(), nil
	}

	rate, err := p.fromResources(resources)
	if err != nil {
		p.logger.Warn("using default rates", "error", err)
		metrics.ProtocolDefaultsTotal.WithLabelValues(p.def.Name).Inc()
		return p.Defaults(), nil
	}
	return rate, nil
}

// Defaults is the hardcoded snapshot used when live data is unavailable.
func (p *Protocol) Defaults() *staking.ProtocolRate {
	rate := p.newRate()
	rate.IsFallback = true
	for _, spec := range p.def.Products {
		o := p.baseOffer(spec)
		o.APR = spec.DefaultAPR
		if spec.Pool != nil {
			o.APR = AMMAPR(spec.Pool.Volume24h, spec.Pool.FeeRate, spec.Pool.Liquidity)
		}
		rate.SetOffer(spec.Type, o)
	}
	p.blend(rate)
	return rate
}

func (p *Protocol) fromResources(resources []aptos.Resource) (*staking.ProtocolRate, error) {
	rate := p.newRate()
	for _, spec := range p.def.Products {
		res, found := aptos.FindResource(resources, p.patterns(spec)...)
		if !found && spec.Type == staking.Staking && p.def.RequireStaking {
			return nil, fmt.Errorf("no staking resources found for %s", p.def.DisplayName)
		}

		o := p.baseOffer(spec)
		o.APR = spec.DefaultAPR
		if spec.Pool != nil {
			o.APR, o.Source = poolAPR(res, found, *spec.Pool)
		} else if found {
			if apr, ok := p.extractAPR(spec, res); ok {
				o.APR = apr
				o.Source = "onchain"
			}
		}
		if found {
			if ts := firstField(res, totalStakedFields); ts.Exists() && ts.String() != "" {
				o.TotalStaked = ts.String()
			}
		}
		rate.SetOffer(spec.Type, o)
	}
	p.blend(rate)
	return rate, nil
}

func (p *Protocol) extractAPR(spec ProductSpec, r aptos.Resource) (float64, bool) {
	if spec.Extract != nil {
		if v, ok := spec.Extract(r); ok && saneAPR(v) {
			return v, true
		}
	}
	apr, ok := number(firstField(r, aprFields))
	if !ok || !saneAPR(apr) {
		return 0, false
	}
	return apr, true
}

// AMMAPR is the fee yield of a pool: volume×fee×365/liquidity as a percent.
func AMMAPR(volume24h, feeRate, liquidity float64) float64 {
	if liquidity <= 0 || volume24h < 0 || feeRate < 0 {
		return 0
	}
	return staking.Round2(volume24h * feeRate * 365 / liquidity * 100)
}

// poolAPR reads each input independently and falls back per input.
func poolAPR(r aptos.Resource, found bool, est PoolEstimate) (float64, string) {
	volume, liquidity, fee := est.Volume24h, est.Liquidity, est.FeeRate
	source := "default"
	if found {
		if v, ok := number(firstField(r, volumeFields)); ok && v > 0 {
			volume = v
			source = "onchain"
		}
		if v, ok := number(firstField(r, liquidityFields)); ok && v > 0 {
			liquidity = v
			source = "onchain"
		}
		if v, ok := number(firstField(r, feeBpsFields)); ok && v > 0 {
			fee = v / 10000
			source = "onchain"
		}
	}
	return AMMAPR(volume, fee, liquidity), source
}

func (p *Protocol) newRate() *staking.ProtocolRate {
	return &staking.ProtocolRate{
		Protocol:    p.def.Name,
		DisplayName: p.def.DisplayName,
		FetchedAt:   p.now(),
	}
}

func (p *Protocol) baseOffer(spec ProductSpec) *staking.Offer {
	return &staking.Offer{
		Product:     spec.Product,
		TotalStaked: spec.TotalStaked,
		APRRange:    spec.APRRange,
		Features:    spec.Features,
		Platforms:   spec.Platforms,
		Source:      "default",
	}
}

func (p *Protocol) blend(rate *staking.ProtocolRate) {
	if len(p.def.Weights) == 0 {
		return
	}
	rate.BlendedStrategy = &staking.Blend{
		APR:         staking.BlendAPR(rate, p.def.Weights),
		Allocation:  p.def.Weights,
		Description: p.def.BlendDescription,
	}
}

func (p *Protocol) patterns(spec ProductSpec) []string {
	out := make([]string, 0, len(spec.Resources))
	for _, s := range spec.Resources {
		out = append(out, strings.ReplaceAll(s, addrToken, p.def.Address))
	}
	return out
}

func firstField(r aptos.Resource, paths []string) gjson.Result {
	for _, path := range paths {
		if v := r.Field(path); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// number accepts JSON numbers and numeric strings, which is how Move u64
// and fixed-point values are usually serialised.
func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func saneAPR(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= maxSaneAPR
}
