package staking

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// StrategyEntry is one line of a strategy definition.
type StrategyEntry struct {
	Protocol   string      `yaml:"protocol" json:"protocol"`
	Product    ProductType `yaml:"product" json:"productType"`
	Percentage float64     `yaml:"percentage" json:"percentage"`
}

// StrategyDef is a named allocation recipe.
type StrategyDef struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	RiskLevel   string          `yaml:"riskLevel"`
	Allocation  []StrategyEntry `yaml:"allocation"`
}

// Catalog is the ordered set of strategies evaluated on every aggregation.
type Catalog struct {
	Strategies []StrategyDef `yaml:"strategies"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded strategy catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode strategy catalog: %w", err)
	}
	if len(c.Strategies) == 0 {
		return nil, fmt.Errorf("strategy catalog is empty")
	}
	seen := make(map[string]bool)
	for _, s := range c.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy without name")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true

		for _, e := range s.Allocation {
			if !validProduct(e.Product) {
				return nil, fmt.Errorf("strategy %q: unknown product %q", s.Name, e.Product)
			}
			if e.Percentage <= 0 {
				return nil, fmt.Errorf("strategy %q: non-positive percentage for %s", s.Name, e.Protocol)
			}
		}
	}
	return &c, nil
}

func validProduct(t ProductType) bool {
	for _, p := range ProductTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Names returns strategy names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		out = append(out, s.Name)
	}
	return out
}

// Lookup finds a strategy by name.
func (c *Catalog) Lookup(name string) (StrategyDef, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyDef{}, false
}

// AllocationResult is a strategy line with its live APR attached.
type AllocationResult struct {
	Protocol    string      `json:"protocol"`
	ProductType ProductType `json:"productType"`
	Product     string      `json:"product,omitempty"`
	Percentage  float64     `json:"percentage"`
	APR         float64     `json:"apr"`
	Resolved    bool        `json:"resolved"`
}

// Strategy is a catalog entry evaluated against one aggregation result.
type Strategy struct {
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	RiskLevel          string             `json:"riskLevel"`
	APR                float64            `json:"apr"`
	ResolvedPercentage float64            `json:"resolvedPercentage"`
	Allocation         []AllocationResult `json:"allocation"`
}

// Evaluate resolves every entry of def against protocols. Entries whose
// protocol failed or lacks the product are skipped. Percentages need not
// sum to 100: when the resolved total is below 100 the blend is scaled up
// to 100, and above 100 it is scaled down, so APR is always the
// percentage-weighted mean of the resolved offers.
func Evaluate(def StrategyDef, protocols map[string]*ProtocolRate) Strategy {
	s := Strategy{
		Name:        def.Name,
		Description: def.Description,
		RiskLevel:   def.RiskLevel,
		Allocation:  make([]AllocationResult, 0, len(def.Allocation)),
	}

	var weighted float64
	for _, e := range def.Allocation {
		line := AllocationResult{
			Protocol:    e.Protocol,
			ProductType: e.Product,
			Percentage:  e.Percentage,
		}
		p := protocols[e.Protocol]
		if !p.Failed() {
			if o := p.Offer(e.Product); o != nil {
				line.APR = o.APR
				line.Product = o.Product
				line.Resolved = true
				weighted += o.APR * e.Percentage / 100
				s.ResolvedPercentage += e.Percentage
			}
		}
		s.Allocation = append(s.Allocation, line)
	}

	switch {
	case s.ResolvedPercentage == 0:
		s.APR = 0
	case s.ResolvedPercentage < 100, s.ResolvedPercentage > 100:
		// partial or over-allocated catalogs
		s.APR = Round2(weighted * 100 / s.ResolvedPercentage)
	default:
		s.APR = Round2(weighted)
	}
	return s
}
