package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
)

// Client talks to the external token service that owns all balance movement.
// The protocol only relies on mint/burn/transfer semantics; the service's
// internal accounting is its own business.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: baseURL}
}

type mintRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type burnRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type transferRequest struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type errorReply struct {
	Error string `json:"error"`
}

func (c *Client) Mint(ctx context.Context, account string, amount *big.Int) error {
	return c.post(ctx, "/v1/mint", mintRequest{Account: account, Amount: amount.String()})
}

func (c *Client) Burn(ctx context.Context, account string, amount *big.Int) error {
	return c.post(ctx, "/v1/burn", burnRequest{Account: account, Amount: amount.String()})
}

func (c *Client) Transfer(ctx context.Context, asset string, from, to string, amount *big.Int) error {
	return c.post(ctx, "/v1/transfer", transferRequest{Asset: asset, From: from, To: to, Amount: amount.String()})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request for %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var reply errorReply
		if decodeErr := json.NewDecoder(resp.Body).Decode(&reply); decodeErr == nil && reply.Error != "" {
			return fmt.Errorf("ledger rejected %s: %s (status %d)", path, reply.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status code %d for %s: %s", resp.StatusCode, path, resp.Status)
	}
	return nil
}
