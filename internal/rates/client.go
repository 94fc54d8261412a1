// Package rates fetches currency conversion rates for expense reporting
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/cache"
)

// DefaultBaseURL of the public exchange rate API
const DefaultBaseURL = "https://open.er-api.com/v6"

// Config for the rates client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default client settings
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 5 * time.Second,
	}
}

// Rates maps currency codes to their value relative to the base currency
type Rates map[string]float64

// Client fetches conversion rates with caching. Rate lookups are used for
// display only, so a fetch failure falls back to identity rates rather
// than failing the caller's request.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      cache.Cache
	logger     *zap.Logger
}

// NewClient creates a rates client. The cache may be nil.
func NewClient(config Config, c cache.Cache, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      c,
		logger:     logger,
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// GetRates returns conversion rates for the base currency. On any failure
// it returns identity rates for the base currency alone.
func (c *Client) GetRates(ctx context.Context, base string) (Rates, error) {
	base = strings.ToUpper(base)
	if base == "" {
		base = "USD"
	}

	if c.cache != nil {
		if data, ok := c.cache.Get("rates:" + base); ok {
			var rates Rates
			if err := json.Unmarshal(data, &rates); err == nil {
				return rates, nil
			}
		}
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		c.logger.Warn("rate fetch failed, using identity rates",
			zap.String("base", base),
			zap.Error(err))
		return Rates{base: 1}, nil
	}

	if c.cache != nil {
		if data, err := json.Marshal(rates); err == nil {
			c.cache.Set("rates:"+base, data)
		}
	}
	return rates, nil
}

// Convert converts an amount between currencies using the target rates.
// Unknown currencies convert 1:1.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates, err := c.GetRates(ctx, from)
	if err != nil {
		return amount, err
	}

	rate, ok := rates[to]
	if !ok || rate == 0 {
		c.logger.Debug("no rate available, converting 1:1",
			zap.String("from", from),
			zap.String("to", to))
		return amount, nil
	}
	return amount * rate, nil
}

func (c *Client) fetch(ctx context.Context, base string) (Rates, error) {
	url := fmt.Sprintf("%s/latest/%s", c.config.BaseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if parsed.Result != "success" || len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("rate API returned no rates")
	}
	return parsed.Rates, nil
}
