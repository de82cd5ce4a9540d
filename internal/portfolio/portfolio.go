// Package portfolio reads a wallet's APT, liquid staking and LP holdings.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking/protocols"
)

// ErrInvalidAddress is returned before any network call for malformed addresses.
var ErrInvalidAddress = errors.New("invalid wallet address format")

const (
	TortugaAddress = "0x8f396e4246b2ba87b51c0739ef5ea4f26515a98375308c31ac2ec1e42142a57f"
	DittoAddress   = "0xd11107bdf0d6d7040c6c0bfbdecb6545191fdf13e8d8d259952f53e1713f61b5"
)

// Prices are the USD estimates used to value holdings.
type Prices struct {
	APT    float64
	StAPT  float64
	SthAPT float64
	TAPT   float64
	DAPT   float64
}

func DefaultPrices() Prices {
	return Prices{APT: 12.50, StAPT: 11, SthAPT: 10.75, TAPT: 10.9, DAPT: 10.8}
}

// Balance is an amount in APT units with its USD value.
type Balance struct {
	Amount   float64 `json:"amount"`
	ValueUSD float64 `json:"valueUsd"`
}

type LPPosition struct {
	Protocol string  `json:"protocol"`
	Type     string  `json:"type"`
	RawValue float64 `json:"rawValue"`
	ValueAPT float64 `json:"valueInApt"`
	ValueUSD float64 `json:"valueUsd"`
}

type Liquidity struct {
	HasLiquidity bool         `json:"hasLiquidity"`
	ValueUSD     float64      `json:"valueUsd"`
	Positions    []LPPosition `json:"positions"`
}

type TxSummary struct {
	Hash      string    `json:"hash"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	VMStatus  string    `json:"vmStatus,omitempty"`
}

// Snapshot is the valued state of one wallet.
type Snapshot struct {
	Address            string      `json:"address"`
	APT                Balance     `json:"apt"`
	StAPT              Balance     `json:"stAPT"`
	SthAPT             Balance     `json:"sthAPT"`
	TAPT               Balance     `json:"tAPT"`
	DAPT               Balance     `json:"dAPT"`
	AMMLiquidity       Liquidity   `json:"ammLiquidity"`
	TotalValueUSD      float64     `json:"totalValueUsd"`
	RecentTransactions []TxSummary `json:"recentTransactions"`
	LastUpdated        time.Time   `json:"lastUpdated"`
}

// StakedAPT sums every liquid staking balance.
func (s *Snapshot) StakedAPT() float64 {
	return s.StAPT.Amount + s.SthAPT.Amount + s.TAPT.Amount + s.DAPT.Amount
}

// Holdings is the input to staking.Personalize.
func (s *Snapshot) Holdings() staking.Holdings {
	return staking.Holdings{
		TotalValueUSD: s.TotalValueUSD,
		APT:           s.APT.Amount,
		StakedAPT:     s.StakedAPT(),
		LiquidityUSD:  s.AMMLiquidity.ValueUSD,
	}
}

// Reader is the part of aptos.Client used here.
type Reader interface {
	AccountResources(ctx context.Context, addr string) ([]aptos.Resource, error)
	AccountTransactions(ctx context.Context, addr string, limit int) ([]aptos.Transaction, error)
}

type Tracker struct {
	client   Reader
	retry    *retry.Fetcher
	prices   Prices
	txLimit  int
	logger   *slog.Logger
	now      func() time.Time
	contract map[string]string
}

func NewTracker(client Reader, r *retry.Fetcher, prices Prices, logger *slog.Logger) *Tracker {
	if r == nil {
		r = retry.Default()
	}
	return &Tracker{
		client:  client,
		retry:   r,
		prices:  prices,
		txLimit: 5,
		logger:  logger,
		now:     time.Now,
		contract: map[string]string{
			"amnis":   protocols.AmnisAddress,
			"thala":   protocols.ThalaAddress,
			"echo":    protocols.EchoAddress,
			"aries":   protocols.AriesAddress,
			"cellana": protocols.CellanaAddress,
			"tortuga": TortugaAddress,
			"ditto":   DittoAddress,
		},
	}
}

// Snapshot reads and values the wallet. Unknown accounts and accounts with
// no resources are errors; a failed transaction read is not.
func (t *Tracker) Snapshot(ctx context.Context, addr string) (*Snapshot, error) {
	if !aptos.ValidAddress(addr) {
		return nil, ErrInvalidAddress
	}
	resources, err := retry.Fetch(ctx, t.retry, func(ctx context.Context) ([]aptos.Resource, error) {
		return t.client.AccountResources(ctx, addr)
	})
	if err != nil {
		return nil, fmt.Errorf("account validation failed: %w", err)
	}

	snap := &Snapshot{Address: addr, LastUpdated: t.now()}

	if raw, ok := aptos.CoinBalance(resources, aptos.NativeCoinType); ok {
		snap.APT = t.balance(raw, t.prices.APT)
	}
	snap.StAPT = t.balance(t.staked(resources, "amnis"), t.prices.StAPT)
	snap.SthAPT = t.balance(t.staked(resources, "thala"), t.prices.SthAPT)
	snap.TAPT = t.balance(t.staked(resources, "tortuga"), t.prices.TAPT)
	snap.DAPT = t.balance(t.staked(resources, "ditto"), t.prices.DAPT)
	snap.AMMLiquidity = t.liquidity(resources)

	snap.TotalValueUSD = staking.Round2(snap.APT.ValueUSD + snap.StAPT.ValueUSD + snap.SthAPT.ValueUSD +
		snap.TAPT.ValueUSD + snap.DAPT.ValueUSD + snap.AMMLiquidity.ValueUSD)

	txs, err := retry.Fetch(ctx, t.retry, func(ctx context.Context) ([]aptos.Transaction, error) {
		return t.client.AccountTransactions(ctx, addr, t.txLimit)
	})
	if err != nil {
		t.logger.Warn("transaction history unavailable", "address", addr, "error", err)
	}
	snap.RecentTransactions = make([]TxSummary, 0, len(txs))
	for _, tx := range txs {
		snap.RecentTransactions = append(snap.RecentTransactions, TxSummary{
			Hash:      tx.Hash,
			Type:      ClassifyTransaction(tx),
			Timestamp: tx.Time(),
			Success:   tx.Success,
			VMStatus:  tx.VMStatus,
		})
	}
	return snap, nil
}

func (t *Tracker) balance(raw, price float64) Balance {
	amount := staking.Round2(raw / aptos.OctasPerAPT)
	return Balance{Amount: amount, ValueUSD: staking.Round2(amount * price)}
}

// staked finds the liquid staking token resource of a protocol, in octas.
func (t *Tracker) staked(resources []aptos.Resource, protocol string) float64 {
	addr := t.contract[protocol]
	for _, r := range resources {
		if !strings.Contains(r.Type, addr+"::staking") &&
			!strings.Contains(r.Type, addr+"::stake") &&
			!strings.Contains(r.Type, addr+"::stapt_token") &&
			!strings.Contains(r.Type, addr+"::apt") {
			continue
		}
		if !strings.Contains(r.Type, "Staked") && !strings.Contains(r.Type, "stapt") && !strings.Contains(r.Type, "token") {
			continue
		}
		return resourceValue(r)
	}
	return 0
}

var lpMarkers = []string{"LiquidityPool", "LPCoin", "LP<", "Swap", "AMM"}

func (t *Tracker) liquidity(resources []aptos.Resource) Liquidity {
	liq := Liquidity{Positions: []LPPosition{}}
	for _, r := range resources {
		if !containsAny(r.Type, lpMarkers) {
			continue
		}
		raw := resourceValue(r)
		if raw <= 0 {
			continue
		}
		protocol := "unknown"
		for name, addr := range t.contract {
			if strings.Contains(r.Type, addr) {
				protocol = name
				break
			}
		}
		valueAPT := raw / aptos.OctasPerAPT
		pos := LPPosition{
			Protocol: protocol,
			Type:     lastSegment(r.Type),
			RawValue: raw,
			ValueAPT: staking.Round2(valueAPT),
			ValueUSD: staking.Round2(valueAPT * t.prices.APT),
		}
		liq.Positions = append(liq.Positions, pos)
		liq.ValueUSD += pos.ValueUSD
	}
	liq.HasLiquidity = len(liq.Positions) > 0
	liq.ValueUSD = staking.Round2(liq.ValueUSD)
	return liq
}

func resourceValue(r aptos.Resource) float64 {
	for _, path := range []string{"coin.value", "value", "amount"} {
		if v := r.Field(path); v.Exists() && (v.Type == gjson.Number || v.Type == gjson.String) {
			return v.Float()
		}
	}
	return 0
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lastSegment(typ string) string {
	if i := strings.LastIndex(typ, "::"); i >= 0 {
		return typ[i+2:]
	}
	return typ
}

// ClassifyTransaction names a transaction by its entry function.
func ClassifyTransaction(tx aptos.Transaction) string {
	fn := tx.Payload.Function
	switch {
	case strings.Contains(fn, "::unstake") || strings.Contains(fn, "::withdraw"):
		return "Unstaking"
	case strings.Contains(fn, "::stake"):
		return "Staking"
	case strings.Contains(fn, "::swap"):
		return "Swap"
	case strings.Contains(fn, "::add_liquidity"):
		return "Add Liquidity"
	case strings.Contains(fn, "::remove_liquidity"):
		return "Remove Liquidity"
	case strings.Contains(fn, "::transfer"):
		return "Transfer"
	}
	if tx.Type != "" {
		return tx.Type
	}
	return "Transaction"
}
