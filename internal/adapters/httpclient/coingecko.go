package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stablevault/internal/domain"
)

// CoinGeckoClient fetches spot prices from the CoinGecko simple-price API.
type CoinGeckoClient struct {
	http    *http.Client
	baseURL string
	now     func() time.Time
}

var coinGeckoIDs = map[string]string{
	"ICP": "internet-computer",
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

func NewCoinGeckoClient(httpClient *http.Client, baseURL string) *CoinGeckoClient {
	return &CoinGeckoClient{http: httpClient, baseURL: baseURL, now: time.Now}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

func (c *CoinGeckoClient) Quote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	id, ok := coinGeckoIDs[symbol]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("coingecko: unsupported symbol %q", symbol)
	}

	u, err := url.Parse(c.baseURL + "/api/v3/simple/price")
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_last_updated_at", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to create request for symbol %q: %w", symbol, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to execute request for symbol %q: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PriceQuote{}, fmt.Errorf("unexpected status code %d for symbol %q: %s", resp.StatusCode, symbol, resp.Status)
	}

	var body map[string]struct {
		USD           float64 `json:"usd"`
		LastUpdatedAt int64   `json:"last_updated_at"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to decode response for symbol %q: %w", symbol, err)
	}

	entry, ok := body[id]
	if !ok || entry.USD <= 0 {
		return domain.PriceQuote{}, fmt.Errorf("price not found in response for symbol %q", symbol)
	}

	ts := c.now()
	if entry.LastUpdatedAt > 0 {
		ts = time.Unix(entry.LastUpdatedAt, 0)
	}

	return domain.PriceQuote{Price: entry.USD, Timestamp: ts, Source: c.Name()}, nil
}
