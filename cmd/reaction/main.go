// Command reaction prints the earnings-reaction table for one ticker, for
// quick checks without running the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sitshu/stock-analyst/internal/cache"
	"github.com/sitshu/stock-analyst/internal/config"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata/yahoo"
	"github.com/sitshu/stock-analyst/internal/research/reaction"
)

func main() {
	ticker := flag.String("ticker", "", "ticker symbol to analyze")
	limit := flag.Int("limit", 0, "number of earnings events (default from config)")
	cfgPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "usage: reaction -ticker AAPL [-limit 8]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		cfg = config.Default()
	}

	var opts []yahoo.Option
	if cfg.Cache.Enabled {
		if store, err := cache.Open(cfg.Cache.Path); err == nil {
			defer store.Close()
			opts = append(opts, yahoo.WithCache(store))
		}
	}
	provider := yahoo.New(cfg.Identity, opts...)

	analyzer := reaction.NewAnalyzer(reaction.Config{
		DefaultEvents:  cfg.Reaction.DefaultEvents,
		BaselineWindow: cfg.Reaction.BaselineWindow,
	}, provider)

	n := *limit
	if n <= 0 {
		n = analyzer.DefaultLimit()
	}

	resp, err := analyzer.Analyze(context.Background(), *ticker, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze %s: %v\n", *ticker, err)
		os.Exit(1)
	}

	fmt.Printf("Earnings reactions for %s (%d events)\n\n", resp.Ticker, len(resp.Items))
	fmt.Printf("%-12s %10s %10s %12s %10s %10s\n",
		"REPORT", "EST EPS", "ACT EPS", "SURPRISE%", "RET 1D%", "RET 5D%")
	for _, item := range resp.Items {
		fmt.Printf("%-12s %10s %10s %12s %10s %10s\n",
			item.ReportDate.Format("2006-01-02"),
			fmtFloat(item.EPSEstimate),
			fmtFloat(item.EPSActual),
			fmtFloat(item.SurprisePct),
			fmtFloat(item.Return1D),
			fmtFloat(item.Return5D))
	}

	fmt.Println()
	if resp.Summary.AverageAbsMovePct != nil {
		fmt.Printf("avg abs move: %.2f%%  ", *resp.Summary.AverageAbsMovePct)
	}
	if resp.Summary.AverageUpsidePct != nil {
		fmt.Printf("avg upside: %.2f%%  ", *resp.Summary.AverageUpsidePct)
	}
	if resp.Summary.AverageDownsidePct != nil {
		fmt.Printf("avg downside: %.2f%%  ", *resp.Summary.AverageDownsidePct)
	}
	fmt.Printf("beats: %d  misses: %d\n", resp.Summary.BeatsCount, resp.Summary.MissesCount)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
