// Package gateway is the REST client for the order-management API. The
// gateway owns trade identity and realized P&L; everything the tracker knows
// locally is reconciled against these endpoints.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// Client talks to the order-gateway HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an order-gateway client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// OpenPosition registers a new trade and returns its external ID.
func (c *Client) OpenPosition(ctx context.Context, entryPrice, profitTarget, lossLimit float64) (string, error) {
	var out openResponse
	err := c.doJSON(ctx, http.MethodPost, "/buy", openRequest{
		BuyPrice:     entryPrice,
		BookedProfit: profitTarget,
		MinLoss:      lossLimit,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("gateway: open position: %w", err)
	}
	if out.TradeID == "" {
		return "", fmt.Errorf("gateway: open position: %w: empty trade id", domain.ErrGatewayRejected)
	}
	return out.TradeID, nil
}

// ClosePosition closes the trade identified by externalID at exitPrice and
// returns the resulting closed trade together with the gateway's running
// total P&L.
func (c *Client) ClosePosition(ctx context.Context, externalID string, exitPrice float64, reason domain.CloseReason) (domain.ClosedTrade, float64, error) {
	var out closeResponse
	err := c.doJSON(ctx, http.MethodPost, "/sell", closeRequest{
		TradeID:   externalID,
		SellPrice: exitPrice,
		Reason:    string(reason),
	}, &out)
	if err != nil {
		return domain.ClosedTrade{}, 0, fmt.Errorf("gateway: close position %s: %w", externalID, err)
	}
	return out.Trade.ToDomainTrade(), out.TotalPnL, nil
}

// FetchHistory returns the authoritative closed-trade history and total P&L.
func (c *Client) FetchHistory(ctx context.Context) ([]domain.ClosedTrade, float64, error) {
	var out historyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/history", nil, &out); err != nil {
		return nil, 0, fmt.Errorf("gateway: fetch history: %w", err)
	}
	trades := make([]domain.ClosedTrade, 0, len(out.CompletedTrades))
	for _, t := range out.CompletedTrades {
		trades = append(trades, t.ToDomainTrade())
	}
	return trades, out.TotalPnL, nil
}

// FetchPortfolio returns the currently open positions and total P&L known to
// the gateway.
func (c *Client) FetchPortfolio(ctx context.Context) (Portfolio, error) {
	var out portfolioResponse
	if err := c.doJSON(ctx, http.MethodGet, "/portfolio", nil, &out); err != nil {
		return Portfolio{}, fmt.Errorf("gateway: fetch portfolio: %w", err)
	}
	p := Portfolio{TotalPnL: out.TotalPnL}
	for _, ap := range out.ActiveTrades {
		p.Active = append(p.Active, ap.ToDomainPosition())
	}
	return p, nil
}

// doJSON performs one request/response round trip. Non-2xx responses are
// surfaced as ErrGatewayRejected with the server's error message attached.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w: status %d: %s", domain.ErrGatewayRejected, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%w: status %d", domain.ErrGatewayRejected, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
