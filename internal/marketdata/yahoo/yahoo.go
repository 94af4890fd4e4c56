// Package yahoo implements the marketdata provider interfaces against the
// public Yahoo Finance endpoints: the chart API for daily candles, the
// quoteSummary API for profile and fundamentals, and the visualization API
// for the earnings date table.
package yahoo

import (
	"time"

	"github.com/sitshu/stock-analyst/internal/api"
	"github.com/sitshu/stock-analyst/internal/cache"
)

const (
	chartBaseURL         = "https://query1.finance.yahoo.com/v8/finance/chart"
	quoteSummaryBaseURL  = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	visualizationURL     = "https://query1.finance.yahoo.com/v1/finance/visualization?lang=en-US&region=US"
	quoteSummaryModules  = "price,summaryProfile,summaryDetail,financialData,defaultKeyStatistics"
	defaultFetchTimeout  = 30 * time.Second
	maxEarningsPageSize  = 100
	visualizationEntity  = "earnings"
	visualizationSortKey = "startdatetime"
)

// Client fetches market data from Yahoo Finance. It implements
// marketdata.Provider. A nil cache disables read-through caching.
type Client struct {
	http     *api.Client
	cache    *cache.Store
	identity string
	timeout  time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithCache enables read-through caching of upstream payloads.
func WithCache(store *cache.Store) Option {
	return func(c *Client) {
		c.cache = store
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a Yahoo Finance client. The identity string is sent as
// User-Agent on every request as courtesy identification.
func New(identity string, opts ...Option) *Client {
	c := &Client{
		identity: identity,
		timeout:  defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = api.NewClient(
		api.WithTimeout(c.timeout),
		api.WithLogging(true),
	)
	return c
}

func (c *Client) headers() map[string]string {
	return api.YahooFinanceHeaders(c.identity)
}

// cachedFetch reads through the cache: on miss, fetch populates v and the
// result is stored under key with the given TTL. Cache failures fall back to
// a direct fetch; they never fail the request.
func cachedFetch[T any](c *Client, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	var zero T
	if c.cache != nil {
		var cached T
		if ok, err := c.cache.GetJSON(key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	fresh, err := fetch()
	if err != nil {
		return zero, err
	}
	if c.cache != nil {
		_ = c.cache.SetJSON(key, fresh, ttl)
	}
	return fresh, nil
}
