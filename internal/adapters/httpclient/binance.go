package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stablevault/internal/domain"
)

// BinanceClient fetches the latest ticker price from the Binance REST API.
// Binance does not report an observation timestamp for this endpoint, so the
// quote is stamped with the local fetch time.
type BinanceClient struct {
	http    *http.Client
	baseURL string
	now     func() time.Time
}

func NewBinanceClient(httpClient *http.Client, baseURL string) *BinanceClient {
	return &BinanceClient{http: httpClient, baseURL: baseURL, now: time.Now}
}

func (c *BinanceClient) Name() string { return "binance" }

func (c *BinanceClient) Quote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	u, err := url.Parse(c.baseURL + "/api/v3/ticker/price")
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol+"USDT")
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

	var body struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to decode response for symbol %q: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to parse price %q for symbol %q: %w", body.Price, symbol, err)
	}

	return domain.PriceQuote{Price: price, Timestamp: c.now(), Source: c.Name()}, nil
}
