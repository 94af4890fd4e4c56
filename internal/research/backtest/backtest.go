// Package backtest replays simple earnings-driven strategies over a ticker's
// history: enter at the last close before the report, exit at the first close
// on or after the day after it.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// Strategies supported by Run.
const (
	StrategySurprise   = "surprise"
	StrategyAlwaysLong = "always_long"
	StrategyVolatility = "volatility"
)

// Signal labels produced by the surprise rule.
const (
	SignalStrongBuy = "STRONG_BUY"
	SignalWeakBuy   = "WEAK_BUY"
	SignalSell      = "SELL"
	SignalHold      = "HOLD"
)

// Trade is one simulated round trip around an earnings event.
type Trade struct {
	ReportDate time.Time `json:"report_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Position   int       `json:"position"` // +1 long, -1 short
	PnLPct     float64   `json:"pnl_pct"`
	Signal     string    `json:"signal"`
}

// Report summarizes a backtest run.
type Report struct {
	Ticker         string  `json:"ticker"`
	Strategy       string  `json:"strategy"`
	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalReturnPct float64 `json:"total_return_pct"`
	AvgReturnPct   float64 `json:"avg_return_pct"`
	BestTradePct   float64 `json:"best_trade_pct"`
	WorstTradePct  float64 `json:"worst_trade_pct"`
	Trades         []Trade `json:"trades"`
}

// Runner executes earnings backtests against the market data provider.
type Runner struct {
	earnings marketdata.EarningsSource
	prices   marketdata.PriceSource
}

// NewRunner creates a backtest runner.
func NewRunner(earnings marketdata.EarningsSource, prices marketdata.PriceSource) *Runner {
	return &Runner{earnings: earnings, prices: prices}
}

// Run backtests the named strategy over the ticker's earnings inside the
// lookback window. No executable trades yields marketdata.ErrNoData.
func (r *Runner) Run(ctx context.Context, ticker, strategy string, lookbackDays int) (*Report, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}
	if strategy == "" {
		strategy = StrategySurprise
	}
	if strategy != StrategySurprise && strategy != StrategyAlwaysLong && strategy != StrategyVolatility {
		return nil, fmt.Errorf("unknown strategy %q: %w", strategy, marketdata.ErrInvalidInput)
	}
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback_days must be positive, got %d: %w", lookbackDays, marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "backtest.run", "ticker", ticker, "strategy", strategy)
	defer op.End()
	ctx = op.Context()

	events, err := r.earnings.FetchEarnings(ctx, ticker, 20)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	candles, err := r.prices.FetchDailyCandles(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	trades := []Trade{}
	for _, ev := range events {
		if ev.ReportDate.Before(start) || ev.ReportDate.After(end) {
			continue
		}

		entry, ok := lastCloseBefore(candles, ev.ReportDate)
		if !ok {
			continue
		}
		exit, ok := firstCloseAtOrAfter(candles, ev.ReportDate.AddDate(0, 0, 1))
		if !ok {
			continue
		}

		signal := SurpriseSignal(ev)
		position := positionFor(strategy, signal, ev)
		if position == 0 || entry == 0 {
			continue
		}

		pnl := float64(position) * (exit/entry - 1) * 100
		trades = append(trades, Trade{
			ReportDate: ev.ReportDate,
			EntryPrice: entry,
			ExitPrice:  exit,
			Position:   position,
			PnLPct:     pnl,
			Signal:     signal,
		})
	}

	if len(trades) == 0 {
		return nil, fmt.Errorf("no executable trades for %s: %w", ticker, marketdata.ErrNoData)
	}

	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ReportDate.Before(trades[j].ReportDate)
	})

	report := &Report{
		Ticker:        ticker,
		Strategy:      strategy,
		TotalTrades:   len(trades),
		BestTradePct:  trades[0].PnLPct,
		WorstTradePct: trades[0].PnLPct,
	}
	wins := 0
	for _, t := range trades {
		report.TotalReturnPct += t.PnLPct
		if t.PnLPct > 0 {
			wins++
		}
		if t.PnLPct > report.BestTradePct {
			report.BestTradePct = t.PnLPct
		}
		if t.PnLPct < report.WorstTradePct {
			report.WorstTradePct = t.PnLPct
		}
	}
	report.WinRate = float64(wins) / float64(len(trades))
	report.AvgReturnPct = report.TotalReturnPct / float64(len(trades))

	if len(trades) > 10 {
		trades = trades[len(trades)-10:]
	}
	report.Trades = trades
	return report, nil
}

// SurpriseSignal classifies an earnings event by its surprise figures: both
// EPS and revenue beats are a strong buy, either one a weak buy, an EPS miss
// worse than -5% a sell.
func SurpriseSignal(ev marketdata.EarningsEvent) string {
	epsBeat := ev.SurprisePct != nil && *ev.SurprisePct > 0
	revBeat := ev.RevenueSurprisePct != nil && *ev.RevenueSurprisePct > 0

	switch {
	case epsBeat && revBeat:
		return SignalStrongBuy
	case epsBeat || revBeat:
		return SignalWeakBuy
	case ev.SurprisePct != nil && *ev.SurprisePct < -5:
		return SignalSell
	default:
		return SignalHold
	}
}

func positionFor(strategy, signal string, ev marketdata.EarningsEvent) int {
	switch strategy {
	case StrategyAlwaysLong:
		return 1
	case StrategyVolatility:
		if ev.SurprisePct != nil && (*ev.SurprisePct > 2 || *ev.SurprisePct < -2) {
			return 1
		}
		return 0
	default: // surprise
		switch signal {
		case SignalStrongBuy, SignalWeakBuy:
			return 1
		case SignalSell:
			return -1
		default:
			return 0
		}
	}
}

func lastCloseBefore(candles []marketdata.Candle, day time.Time) (float64, bool) {
	i := sort.Search(len(candles), func(i int) bool {
		return !candles[i].Date.Before(day)
	})
	if i == 0 {
		return 0, false
	}
	return candles[i-1].Close, true
}

func firstCloseAtOrAfter(candles []marketdata.Candle, day time.Time) (float64, bool) {
	i := sort.Search(len(candles), func(i int) bool {
		return !candles[i].Date.Before(day)
	})
	if i == len(candles) {
		return 0, false
	}
	return candles[i].Close, true
}
