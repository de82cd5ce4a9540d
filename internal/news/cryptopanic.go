package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/retry"
	"github.com/web3-frozen/aptos-yield-monitor/internal/upstream"
)

const cryptoPanicAPI = "https://cryptopanic.com/api/v1"

// Post is a CryptoPanic news post.
type Post struct {
	Kind      string    `json:"kind"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Source    *struct {
		Title  string `json:"title"`
		Domain string `json:"domain"`
	} `json:"source"`
	Currencies []struct {
		Code  string `json:"code"`
		Title string `json:"title"`
	} `json:"currencies"`
	Votes struct {
		Positive int `json:"positive"`
		Negative int `json:"negative"`
	} `json:"votes"`
}

// CryptoPanic fetches hot news posts.
type CryptoPanic struct {
	baseURL string
	token   string
	client  *upstream.Client
	retry   *retry.Fetcher
}

func NewCryptoPanic(baseURL, token string, r *retry.Fetcher) *CryptoPanic {
	if baseURL == "" {
		baseURL = cryptoPanicAPI
	}
	if r == nil {
		r = retry.Default()
	}
	return &CryptoPanic{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: upstream.New("cryptopanic", upstream.Options{
			Timeout:       5 * time.Second,
			RatePerSecond: 2,
			Burst:         2,
		}),
		retry: r,
	}
}

// Posts returns hot news, filtered to currency when it is not empty.
func (c *CryptoPanic) Posts(ctx context.Context, currency string) ([]Post, error) {
	q := url.Values{}
	if c.token != "" {
		q.Set("auth_token", c.token)
	}
	q.Set("public", "true")
	q.Set("kind", "news")
	q.Set("filter", "hot")
	if currency != "" {
		q.Set("currencies", currency)
	}
	endpoint := c.baseURL + "/posts/?" + q.Encode()

	return retry.Fetch(ctx, c.retry, func(ctx context.Context) ([]Post, error) {
		var resp struct {
			Results *[]Post `json:"results"`
		}
		if err := c.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		if resp.Results == nil {
			return nil, fmt.Errorf("cryptopanic: response without results")
		}
		return *resp.Results, nil
	})
}
