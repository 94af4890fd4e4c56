package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration for the research dashboard backend.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// Identity is the courtesy identification string sent as User-Agent to
	// upstream data services.
	Identity string `yaml:"identity"`

	Cache struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"cache"`

	Reaction struct {
		DefaultEvents  int `yaml:"default_events"`
		BaselineWindow int `yaml:"baseline_window"`
	} `yaml:"reaction"`

	News struct {
		MaxHeadlines int `yaml:"max_headlines"`
		CacheMinutes int `yaml:"cache_minutes"`
	} `yaml:"news"`

	Calendar struct {
		Watchlist []string `yaml:"watchlist"`
		DaysAhead int      `yaml:"days_ahead"`
	} `yaml:"calendar"`
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr cannot be empty")
	}
	if strings.TrimSpace(c.Identity) == "" {
		return errors.New("identity cannot be empty")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path cannot be empty when cache is enabled")
	}
	if c.Reaction.DefaultEvents <= 0 {
		return fmt.Errorf("reaction.default_events must be positive, got %d", c.Reaction.DefaultEvents)
	}
	if c.Reaction.BaselineWindow <= 1 {
		return fmt.Errorf("reaction.baseline_window must be greater than 1, got %d", c.Reaction.BaselineWindow)
	}
	if c.Calendar.DaysAhead <= 0 {
		return fmt.Errorf("calendar.days_ahead must be positive, got %d", c.Calendar.DaysAhead)
	}
	return nil
}

// Load reads a YAML config file, applies defaults and env overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// Default returns a config usable without a file on disk.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Identity == "" {
		c.Identity = "stock-analyst/0.1 (personal research dashboard)"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "data/cache.sqlite"
	}
	if c.Reaction.DefaultEvents == 0 {
		c.Reaction.DefaultEvents = 8
	}
	if c.Reaction.BaselineWindow == 0 {
		c.Reaction.BaselineWindow = 20
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 20
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 15
	}
	if c.Calendar.DaysAhead == 0 {
		c.Calendar.DaysAhead = 14
	}
	if len(c.Calendar.Watchlist) == 0 {
		c.Calendar.Watchlist = []string{
			"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA",
			"META", "NVDA", "NFLX", "CRM", "ORCL",
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANALYST_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("ANALYST_IDENTITY"); v != "" {
		c.Identity = v
	}
	if v := os.Getenv("ANALYST_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
}

// NewsCacheTTL returns the news cache duration as a time.Duration.
func (c *Config) NewsCacheTTL() time.Duration {
	return time.Duration(c.News.CacheMinutes) * time.Minute
}
