// Package aptos reads account state from an Aptos fullnode REST API and the
// Aptos indexer GraphQL API.
package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const (
	DefaultNodeURL    = "https://api.mainnet.aptoslabs.com/v1"
	DefaultIndexerURL = "https://api.mainnet.aptoslabs.com/v1/graphql"

	// NativeCoinType is the APT coin.
	NativeCoinType = "0x1::aptos_coin::AptosCoin"
	// OctasPerAPT converts raw APT amounts.
	OctasPerAPT = 1e8
)

var (
	// ErrNoResources means the account answered but holds no resources.
	// Callers treat it as a validation failure, not a network error.
	ErrNoResources = errors.New("account has no resources")
	// ErrAccountNotFound is a 404 from the node.
	ErrAccountNotFound = errors.New("account not found")
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidAddress reports whether addr is a full-length hex account address.
func ValidAddress(addr string) bool { return addressPattern.MatchString(addr) }

// Resource is one Move resource stored under an account.
type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Field reads a value from the resource data with a gjson path.
func (r Resource) Field(path string) gjson.Result { return gjson.GetBytes(r.Data, path) }

// Transaction is the subset of a user transaction used for history.
type Transaction struct {
	Version   string `json:"version"`
	Hash      string `json:"hash"`
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	VMStatus  string `json:"vm_status"`
	Timestamp string `json:"timestamp"`
	Payload   struct {
		Function      string   `json:"function"`
		TypeArguments []string `json:"type_arguments"`
	} `json:"payload"`
}

// Time converts the microsecond timestamp.
func (t Transaction) Time() time.Time {
	us, err := strconv.ParseInt(t.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// Client talks to a fullnode.
type Client struct {
	nodeURL string
	http    *upstream.Client
}

func NewClient(nodeURL, apiKey string) *Client {
	if nodeURL == "" {
		nodeURL = DefaultNodeURL
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Client{
		nodeURL: strings.TrimRight(nodeURL, "/"),
		http: upstream.New("aptos-node", upstream.Options{
			Timeout:       10 * time.Second,
			RatePerSecond: 20,
			Burst:         20,
			Headers:       headers,
		}),
	}
}

// AccountResources lists every resource held by addr.
func (c *Client) AccountResources(ctx context.Context, addr string) ([]Resource, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/resources?limit=9999", c.nodeURL, url.PathEscape(addr))
	var out []Resource
	if err := c.http.GetJSON(ctx, endpoint, nil, &out); err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", addr, ErrAccountNotFound)
		}
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", addr, ErrNoResources)
	}
	return out, nil
}

// AccountTransactions returns the most recent transactions sent by addr.
func (c *Client) AccountTransactions(ctx context.Context, addr string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/transactions?limit=%d", c.nodeURL, url.PathEscape(addr), limit)
	var out []Transaction
	if err := c.http.GetJSON(ctx, endpoint, nil, &out); err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", addr, ErrAccountNotFound)
		}
		return nil, err
	}
	return out, nil
}

// FindResource returns the first resource whose type contains any of the
// given substrings.
func FindResource(resources []Resource, substrings ...string) (Resource, bool) {
	for _, r := range resources {
		for _, s := range substrings {
			if s != "" && strings.Contains(r.Type, s) {
				return r, true
			}
		}
	}
	return Resource{}, false
}

// CoinBalance reads the CoinStore balance for coinType, in raw units.
func CoinBalance(resources []Resource, coinType string) (float64, bool) {
	want := "0x1::coin::CoinStore<" + coinType + ">"
	for _, r := range resources {
		if r.Type == want {
			v := r.Field("coin.value")
			if !v.Exists() {
				return 0, false
			}
			return v.Float(), true
		}
	}
	return 0, false
}
