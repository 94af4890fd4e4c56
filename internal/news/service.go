package news

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// ServiceConfig configures the headline service.
type ServiceConfig struct {
	MaxHeadlines   int           // cap per ticker
	CacheDuration  time.Duration // how long fetched headlines stay fresh
	ScraperTimeout time.Duration
	Identity       string // User-Agent for feed requests
}

// DefaultServiceConfig returns the service defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxHeadlines:   20,
		CacheDuration:  15 * time.Minute,
		ScraperTimeout: 30 * time.Second,
		Identity:       "stock-analyst/0.1 (personal research dashboard)",
	}
}

// headlineCache keeps per-ticker feed results for a short TTL.
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	headlines []Headline
	fetchedAt time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

func (c *headlineCache) get(ticker string) ([]Headline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.data[ticker]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.headlines, true
}

func (c *headlineCache) set(ticker string, headlines []Headline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[ticker] = &cacheEntry{headlines: headlines, fetchedAt: time.Now()}
}

// Service serves cached ticker headlines.
type Service struct {
	scraper *Scraper
	cache   *headlineCache
	cfg     *ServiceConfig
}

// NewService creates a headline service.
func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		scraper: NewScraper(cfg.ScraperTimeout, cfg.Identity),
		cache:   newHeadlineCache(cfg.CacheDuration),
		cfg:     cfg,
	}
}

// Headlines returns up to limit recent headlines for the ticker. An empty
// feed yields marketdata.ErrNoData.
func (s *Service) Headlines(ctx context.Context, ticker string, limit int) ([]Headline, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d: %w", limit, marketdata.ErrInvalidInput)
	}
	if limit > s.cfg.MaxHeadlines {
		limit = s.cfg.MaxHeadlines
	}

	if cached, ok := s.cache.get(ticker); ok {
		logger.Debug(ctx, "headlines served from cache", "ticker", ticker)
		return capHeadlines(cached, limit), nil
	}

	headlines, err := s.scraper.Fetch(ctx, ticker, s.cfg.MaxHeadlines)
	if err != nil {
		return nil, err
	}
	if len(headlines) == 0 {
		return nil, fmt.Errorf("no headlines for %s: %w", ticker, marketdata.ErrNoData)
	}

	s.cache.set(ticker, headlines)
	logger.Info(ctx, "headlines fetched", "ticker", ticker, "count", len(headlines))
	return capHeadlines(headlines, limit), nil
}

func capHeadlines(headlines []Headline, limit int) []Headline {
	if len(headlines) > limit {
		return headlines[:limit]
	}
	return headlines
}
