package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sitshu/stock-analyst/internal/cache"
	"github.com/sitshu/stock-analyst/internal/config"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata/yahoo"
	"github.com/sitshu/stock-analyst/internal/news"
	transporthttp "github.com/sitshu/stock-analyst/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		log.Fatalf("logger init: %v", err)
	}

	cfgPath := os.Getenv("ANALYST_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	var providerOpts []yahoo.Option
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			log.Fatalf("open cache: %v", err)
		}
		defer store.Close()
		providerOpts = append(providerOpts, yahoo.WithCache(store))
	}
	provider := yahoo.New(cfg.Identity, providerOpts...)

	headlines := news.NewService(&news.ServiceConfig{
		MaxHeadlines:   cfg.News.MaxHeadlines,
		CacheDuration:  cfg.NewsCacheTTL(),
		ScraperTimeout: 30 * time.Second,
		Identity:       cfg.Identity,
	})

	server := transporthttp.NewServer(cfg, provider, headlines)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(ctx, "shutdown failed", err)
	}
	_ = logger.Shutdown(shutdownCtx)
}
