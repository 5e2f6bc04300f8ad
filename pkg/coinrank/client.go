// Package coinrank provides a Go client for the coinrank-server HTTP API.
package coinrank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// AssetStats mirrors the aggregate-stats JSON document served by the API.
type AssetStats struct {
	MinPrice        decimal.Decimal  `json:"minPrice"`
	MaxPrice        decimal.Decimal  `json:"maxPrice"`
	FirstPrice      decimal.Decimal  `json:"firstPrice"`
	LastPrice       decimal.Decimal  `json:"lastPrice"`
	PriceRange      decimal.Decimal  `json:"priceRange"`
	PriceDifference decimal.Decimal  `json:"priceDifference"`
	NormalizedPrice *decimal.Decimal `json:"normalizedPrice,omitempty"`
	Gain            bool             `json:"gain"`
	Loss            bool             `json:"loss"`
	Flat            bool             `json:"flat"`
}

// RankedAsset mirrors one ranking entry served by the API.
type RankedAsset struct {
	ID              string          `json:"id"`
	NormalizedPrice decimal.Decimal `json:"normalizedPrice"`
}

// Client provides a Go SDK for interacting with the coinrank-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new coinrank API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AllStats retrieves the aggregate stats of every asset.
func (c *Client) AllStats(ctx context.Context) (map[string]AssetStats, error) {
	var out map[string]AssetStats
	if err := c.get(ctx, "/api/stats", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats retrieves the aggregate stats of a single asset.
func (c *Client) Stats(ctx context.Context, asset string) (*AssetStats, error) {
	var out AssetStats
	if err := c.get(ctx, "/api/stats/"+url.PathEscape(asset), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sorted retrieves the assets ordered by normalized price; order is "asc"
// or "desc".
func (c *Client) Sorted(ctx context.Context, order string) ([]RankedAsset, error) {
	var out []RankedAsset
	if err := c.get(ctx, "/api/sorted?order="+url.QueryEscape(order), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BestPerformer retrieves the best-performing asset for a calendar date
// formatted as 2006-01-02.
func (c *Client) BestPerformer(ctx context.Context, date string) (*RankedAsset, error) {
	var out RankedAsset
	if err := c.get(ctx, "/api/best?date="+url.QueryEscape(date), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
