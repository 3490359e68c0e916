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

// KrakenClient fetches the last trade price from the Kraken public ticker.
type KrakenClient struct {
	http    *http.Client
	baseURL string
	now     func() time.Time
}

func NewKrakenClient(httpClient *http.Client, baseURL string) *KrakenClient {
	return &KrakenClient{http: httpClient, baseURL: baseURL, now: time.Now}
}

func (c *KrakenClient) Name() string { return "kraken" }

func (c *KrakenClient) Quote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	pair := "X" + symbol + "ZUSD"

	u, err := url.Parse(c.baseURL + "/0/public/Ticker")
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("pair", pair)
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
		Error  []string `json:"error"`
		Result map[string]struct {
			C []string `json:"c"`
		} `json:"result"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to decode response for symbol %q: %w", symbol, err)
	}
	if len(body.Error) > 0 {
		return domain.PriceQuote{}, fmt.Errorf("kraken returned error for symbol %q: %v", symbol, body.Error)
	}

	ticker, ok := body.Result[pair]
	if !ok || len(ticker.C) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("price not found in response for symbol %q", symbol)
	}

	price, err := strconv.ParseFloat(ticker.C[0], 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to parse price %q for symbol %q: %w", ticker.C[0], symbol, err)
	}

	return domain.PriceQuote{Price: price, Timestamp: c.now(), Source: c.Name()}, nil
}
