package staking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultRecommended is used when no protocol reports a blended APR.
const DefaultRecommended = "thala"

// ProductEntry is one protocol's offer inside a product category.
type ProductEntry struct {
	Protocol string  `json:"protocol"`
	Product  string  `json:"product"`
	APR      float64 `json:"apr"`
}

// Pick names the protocol and product that won a comparison.
type Pick struct {
	Protocol    string      `json:"protocol"`
	ProductType ProductType `json:"productType,omitempty"`
	Product     string      `json:"product,omitempty"`
	APR         float64     `json:"apr"`
}

// Comparison ranks protocols across a few dimensions.
type Comparison struct {
	HighestBlendedAPR *Pick `json:"highestBlendedApr,omitempty"`
	BestSingleProduct *Pick `json:"bestSingleProduct,omitempty"`
	// LowestRisk is the best liquid staking offer.
	LowestRisk *Pick `json:"lowestRisk,omitempty"`
	// HighestYield is the best AMM or yield-vault offer.
	HighestYield *Pick `json:"highestYield,omitempty"`
}

// Result is the outcome of one aggregation call.
type Result struct {
	Protocols            map[string]*ProtocolRate       `json:"protocols"`
	ProtocolOrder        []string                       `json:"protocolOrder"`
	CategorizedProtocols map[ProductType][]ProductEntry `json:"categorizedProtocols"`
	RecommendedProtocol  string                         `json:"recommendedProtocol"`
	ComparisonAnalysis   Comparison                     `json:"comparisonAnalysis"`
	Strategies           map[string]Strategy            `json:"strategies"`
	StrategyOrder        []string                       `json:"strategyOrder"`
	LastUpdated          time.Time                      `json:"lastUpdated"`
}

// Ordered returns protocols in registration order.
func (r *Result) Ordered() []*ProtocolRate {
	out := make([]*ProtocolRate, 0, len(r.ProtocolOrder))
	for _, name := range r.ProtocolOrder {
		out = append(out, r.Protocols[name])
	}
	return out
}

// OrderedStrategies returns strategies in catalog order.
func (r *Result) OrderedStrategies() []Strategy {
	out := make([]Strategy, 0, len(r.StrategyOrder))
	for _, name := range r.StrategyOrder {
		out = append(out, r.Strategies[name])
	}
	return out
}

// Aggregator fans out to every registered provider and derives the
// comparison and strategy views.
type Aggregator struct {
	providers []Provider
	catalog   *Catalog
	logger    *slog.Logger
	now       func() time.Time
}

func NewAggregator(catalog *Catalog, logger *slog.Logger) *Aggregator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Aggregator{
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a provider. Registration order breaks ties.
func (a *Aggregator) Register(p Provider) {
	a.providers = append(a.providers, p)
	a.logger.Info("registered protocol", "protocol", p.Name())
}

func (a *Aggregator) Catalog() *Catalog { return a.catalog }

// ProtocolNames returns the registered protocol names.
func (a *Aggregator) ProtocolNames() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// GetStakingData queries every provider concurrently, waits for all of
// them, and never fails: a provider error becomes an error placeholder.
func (a *Aggregator) GetStakingData(ctx context.Context) *Result {
	rates := make([]*ProtocolRate, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			rates[i] = a.fetchOne(ctx, p)
		}(i, p)
	}
	wg.Wait()

	res := &Result{
		Protocols:     make(map[string]*ProtocolRate, len(rates)),
		ProtocolOrder: make([]string, 0, len(rates)),
		LastUpdated:   a.now(),
	}
	for _, r := range rates {
		res.Protocols[r.Protocol] = r
		res.ProtocolOrder = append(res.ProtocolOrder, r.Protocol)
	}

	res.CategorizedProtocols = categorize(rates)
	res.ComparisonAnalysis = compare(rates)
	res.RecommendedProtocol = DefaultRecommended
	if best := res.ComparisonAnalysis.HighestBlendedAPR; best != nil {
		res.RecommendedProtocol = best.Protocol
	}

	res.Strategies = make(map[string]Strategy, len(a.catalog.Strategies))
	for _, def := range a.catalog.Strategies {
		res.Strategies[def.Name] = Evaluate(def, res.Protocols)
		res.StrategyOrder = append(res.StrategyOrder, def.Name)
	}
	return res
}

func (a *Aggregator) fetchOne(ctx context.Context, p Provider) (rate *ProtocolRate) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("protocol provider panicked", "protocol", p.Name(), "panic", rec)
			rate = &ProtocolRate{Protocol: p.Name(), Error: fmt.Sprintf("panic: %v", rec), FetchedAt: a.now()}
		}
	}()

	r, err := p.Fetch(ctx)
	if err != nil {
		a.logger.Error("protocol fetch failed", "protocol", p.Name(), "error", err)
		return &ProtocolRate{Protocol: p.Name(), Error: err.Error(), FetchedAt: a.now()}
	}
	if r == nil {
		return &ProtocolRate{Protocol: p.Name(), Error: "no data", FetchedAt: a.now()}
	}
	if r.Protocol == "" {
		r.Protocol = p.Name()
	}
	return r
}

func categorize(rates []*ProtocolRate) map[ProductType][]ProductEntry {
	out := make(map[ProductType][]ProductEntry)
	for _, t := range ProductTypes {
		var entries []ProductEntry
		for _, r := range rates {
			if r.Failed() {
				continue
			}
			if o := r.Offer(t); o != nil {
				entries = append(entries, ProductEntry{Protocol: r.Protocol, Product: o.Product, APR: o.APR})
			}
		}
		if len(entries) == 0 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].APR > entries[j].APR })
		out[t] = entries
	}
	return out
}

// compare walks protocols in registration order; a strictly greater value
// is needed to replace the current pick.
func compare(rates []*ProtocolRate) Comparison {
	var c Comparison
	for _, r := range rates {
		if r.Failed() {
			continue
		}
		if b := r.BlendedAPR(); b > 0 && (c.HighestBlendedAPR == nil || b > c.HighestBlendedAPR.APR) {
			c.HighestBlendedAPR = &Pick{Protocol: r.Protocol, APR: b}
		}
		for _, t := range ProductTypes {
			o := r.Offer(t)
			if o == nil {
				continue
			}
			pick := &Pick{Protocol: r.Protocol, ProductType: t, Product: o.Product, APR: o.APR}
			if c.BestSingleProduct == nil || o.APR > c.BestSingleProduct.APR {
				c.BestSingleProduct = pick
			}
			switch t {
			case Staking:
				if c.LowestRisk == nil || o.APR > c.LowestRisk.APR {
					c.LowestRisk = pick
				}
			case AMM, Yield:
				if c.HighestYield == nil || o.APR > c.HighestYield.APR {
					c.HighestYield = pick
				}
			}
		}
	}
	return c
}
