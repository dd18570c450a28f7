package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrQuoteNotFound means the source answered but has no price for the pair.
var ErrQuoteNotFound = errors.New("quote not found")

type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type simplePriceResponse map[string]map[string]decimal.Decimal

func (c *CoinGeckoClient) Quote(ctx context.Context, fromID, toID string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", fromID)
	params.Set("vs_currencies", toID)
	if c.apiKey != "" {
		params.Set("x_cg_demo_api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	response, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer response.Body.Close()
	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return decimal.Zero, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("coingecko: unexpected status %d", response.StatusCode)
	}

	var prices simplePriceResponse
	if err := json.Unmarshal(body, &prices); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: decode response: %w", err)
	}
	quotes, ok := prices[fromID]
	if !ok {
		return decimal.Zero, ErrQuoteNotFound
	}
	price, ok := quotes[toID]
	if !ok {
		return decimal.Zero, ErrQuoteNotFound
	}
	return price, nil
}
