// Package feed adapts the gateway's price endpoint into samples for the
// tracker and owns the polling loop that drives price updates.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rkathuria/bulliond/internal/domain"
)

// Client is the REST client for the price-feed endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a price-feed client for the given gateway base URL.
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

// priceResponse mirrors the wire format of GET /silver-price. The value is
// either a number or the placeholder string "--" when the dealer site had no
// usable rate.
type priceResponse struct {
	CurrVal any    `json:"currVal"`
	Error   string `json:"error,omitempty"`
}

// CurrentPrice fetches the latest price. It returns ErrFeedUnavailable when
// the request fails and ErrNoPrice when the feed has no valid value.
func (c *Client) CurrentPrice(ctx context.Context) (domain.PriceSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/silver-price", nil)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("feed: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("feed: %w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("feed: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PriceSample{}, fmt.Errorf("feed: %w: status %d: %s", domain.ErrFeedUnavailable, resp.StatusCode, string(body))
	}

	var pr priceResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return domain.PriceSample{}, fmt.Errorf("feed: decode response: %w", err)
	}

	value, ok := numericValue(pr.CurrVal)
	if !ok || value <= 0 {
		return domain.PriceSample{}, domain.ErrNoPrice
	}

	return domain.PriceSample{
		Value:      value,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// numericValue coerces the loosely-typed currVal field into a float64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if n == "--" || n == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
