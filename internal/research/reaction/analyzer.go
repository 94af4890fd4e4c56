// Package reaction computes short-horizon price reactions around earnings
// events: for each report date, the percentage return from the first trading
// day at or after the report to the close 1 and 5 trading days later.
package reaction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// DataSource is the slice of the market data provider the analyzer needs.
type DataSource interface {
	marketdata.EarningsSource
	marketdata.PriceSource
}

// Analyzer joins a ticker's earnings history against its daily price series.
type Analyzer struct {
	cfg    Config
	source DataSource
}

// NewAnalyzer creates an analyzer over the given data source.
func NewAnalyzer(cfg Config, source DataSource) *Analyzer {
	if cfg.DefaultEvents <= 0 {
		cfg.DefaultEvents = DefaultConfig().DefaultEvents
	}
	if cfg.BaselineWindow <= 1 {
		cfg.BaselineWindow = DefaultConfig().BaselineWindow
	}
	if cfg.PricePadDays <= 0 {
		cfg.PricePadDays = DefaultConfig().PricePadDays
	}
	return &Analyzer{cfg: cfg, source: source}
}

// DefaultLimit returns the configured default event lookback.
func (a *Analyzer) DefaultLimit() int {
	return a.cfg.DefaultEvents
}

// Analyze returns the reaction table for a ticker, most recent event first,
// truncated to limit. Ticker must be non-empty and limit positive; an empty
// upstream earnings or price history yields marketdata.ErrNoData.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, limit int) (*Response, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d: %w", limit, marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "reaction.analyze", "ticker", ticker, "limit", limit)
	defer op.End()
	ctx = op.Context()

	events, err := a.source.FetchEarnings(ctx, ticker, limit)
	if err != nil {
		return nil, err
	}
	events = dedupeByReportDate(events)
	if len(events) == 0 {
		return nil, fmt.Errorf("no earnings history for %s: %w", ticker, marketdata.ErrNoData)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ReportDate.After(events[j].ReportDate)
	})
	if len(events) > limit {
		events = events[:limit]
	}

	earliest := events[len(events)-1].ReportDate
	start := earliest.AddDate(0, 0, -a.cfg.PricePadDays)
	candles, err := a.source.FetchDailyCandles(ctx, ticker, start, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no price history for %s: %w", ticker, marketdata.ErrNoData)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	items := make([]Item, 0, len(events))
	for _, ev := range events {
		item := Item{
			ReportDate:  ev.ReportDate,
			EPSEstimate: ev.EPSEstimate,
			EPSActual:   ev.EPSActual,
			SurprisePct: ev.SurprisePct,
		}
		// Surprise is undefined without a reported figure, whatever upstream says.
		if ev.EPSActual == nil {
			item.SurprisePct = nil
		}

		anchor := anchorIndex(candles, ev.ReportDate)
		if anchor >= 0 {
			item.Return1D = forwardReturn(closes, anchor, 1)
			item.Return5D = forwardReturn(closes, anchor, 5)
			item.BaselineVolatilityPct = baselineVolatility(closes, anchor, a.cfg.BaselineWindow)
		}
		items = append(items, item)
	}

	return &Response{
		Ticker:  ticker,
		Items:   items,
		Summary: summarize(items),
	}, nil
}

// Metrics computes position-sizing risk metrics from the reaction history.
// A ticker with events but no computable moves returns zero-valued metrics.
func (a *Analyzer) Metrics(ctx context.Context, ticker string) (*RiskMetrics, error) {
	resp, err := a.Analyze(ctx, ticker, a.cfg.DefaultEvents)
	if err != nil {
		return nil, err
	}

	metrics := &RiskMetrics{Ticker: resp.Ticker}
	moves := make([]float64, 0, len(resp.Items))
	wins := 0
	for _, item := range resp.Items {
		if item.Return1D == nil {
			continue
		}
		moves = append(moves, math.Abs(*item.Return1D))
		if *item.Return1D > 0 {
			wins++
		}
	}
	if len(moves) == 0 {
		return metrics, nil
	}

	sum, maxMove := 0.0, 0.0
	for _, m := range moves {
		sum += m
		if m > maxMove {
			maxMove = m
		}
	}
	mean := sum / float64(len(moves))

	variance := 0.0
	for _, m := range moves {
		d := m - mean
		variance += d * d
	}

	metrics.AvgMovePct = mean
	metrics.MaxMovePct = maxMove
	metrics.Volatility = math.Sqrt(variance / float64(len(moves)))
	metrics.WinRate = float64(wins) / float64(len(moves))
	metrics.SampleSize = len(moves)
	return metrics, nil
}

// dedupeByReportDate collapses duplicate report dates, keeping the
// latest-seen figures for each date.
func dedupeByReportDate(events []marketdata.EarningsEvent) []marketdata.EarningsEvent {
	if len(events) <= 1 {
		return events
	}
	byDate := make(map[string]marketdata.EarningsEvent, len(events))
	order := make([]string, 0, len(events))
	for _, ev := range events {
		key := ev.ReportDate.Format("2006-01-02")
		if _, seen := byDate[key]; !seen {
			order = append(order, key)
		}
		byDate[key] = ev
	}
	out := make([]marketdata.EarningsEvent, 0, len(order))
	for _, key := range order {
		out = append(out, byDate[key])
	}
	return out
}

// anchorIndex finds the first trading day at or after the report date, or -1
// when the series ends before it.
func anchorIndex(candles []marketdata.Candle, reportDate time.Time) int {
	i := sort.Search(len(candles), func(i int) bool {
		return !candles[i].Date.Before(reportDate)
	})
	if i == len(candles) {
		return -1
	}
	return i
}

// forwardReturn is the percentage change from closes[anchor] to
// closes[anchor+days], or nil when the series is too short.
func forwardReturn(closes []float64, anchor, days int) *float64 {
	target := anchor + days
	if target >= len(closes) || closes[anchor] == 0 {
		return nil
	}
	r := (closes[target]/closes[anchor] - 1) * 100
	return &r
}

// baselineVolatility is the annualized standard deviation of daily returns
// over the window ending the day before the anchor, in percent.
func baselineVolatility(closes []float64, anchor, window int) *float64 {
	// Need `window` daily returns ending at index anchor-1; returns start at
	// index 1.
	if anchor < window+1 {
		return nil
	}
	returns := make([]float64, 0, window)
	for i := anchor - window; i <= anchor-1; i++ {
		prev := closes[i-1]
		if prev == 0 {
			return nil
		}
		returns = append(returns, closes[i]/prev-1)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	// Sample variance to match a rolling-window standard deviation.
	variance /= float64(len(returns) - 1)

	vol := math.Sqrt(variance) * math.Sqrt(252) * 100
	return &vol
}

func summarize(items []Item) Summary {
	var up, down, abs []float64
	var summary Summary
	for _, item := range items {
		if item.SurprisePct != nil {
			if *item.SurprisePct > 0 {
				summary.BeatsCount++
			} else if *item.SurprisePct < 0 {
				summary.MissesCount++
			}
		}
		if item.Return1D == nil {
			continue
		}
		r := *item.Return1D
		abs = append(abs, math.Abs(r))
		if r >= 0 {
			up = append(up, r)
		} else {
			down = append(down, r)
		}
	}
	summary.AverageUpsidePct = meanOf(up)
	summary.AverageDownsidePct = meanOf(down)
	summary.AverageAbsMovePct = meanOf(abs)
	return summary
}

func meanOf(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}
