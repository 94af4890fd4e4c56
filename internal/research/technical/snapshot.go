// Package technical builds the dashboard's indicator snapshot for one ticker
// from its recent daily bars.
package technical

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
	"github.com/sitshu/stock-analyst/internal/ta"
)

// Snapshot is the technical state of a ticker at the last close. Indicator
// fields are nil when the history is too short to compute them.
type Snapshot struct {
	Ticker       string   `json:"ticker"`
	CurrentPrice float64  `json:"current_price"`
	Change1D     *float64 `json:"price_change_1d"`
	Change5D     *float64 `json:"price_change_5d"`
	Change20D    *float64 `json:"price_change_20d"`

	MA5  *float64 `json:"ma_5"`
	MA10 *float64 `json:"ma_10"`
	MA20 *float64 `json:"ma_20"`
	MA50 *float64 `json:"ma_50"`

	RSI      *float64 `json:"rsi"`
	BBUpper  *float64 `json:"bb_upper"`
	BBMiddle *float64 `json:"bb_middle"`
	BBLower  *float64 `json:"bb_lower"`
	ATR      *float64 `json:"atr"`

	VolumeRatio *float64 `json:"volume_ratio"`

	Signals       []string `json:"signals"`
	OverallSignal string   `json:"overall_signal"`
	StrengthScore int      `json:"strength_score"`
}

// Periods recognized by the snapshot service, mapped to calendar lookbacks.
var periodLookback = map[string]time.Duration{
	"1mo": 31 * 24 * time.Hour,
	"3mo": 92 * 24 * time.Hour,
	"6mo": 183 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// Service computes technical snapshots.
type Service struct {
	prices marketdata.PriceSource
}

// NewService creates a snapshot service over the given price source.
func NewService(prices marketdata.PriceSource) *Service {
	return &Service{prices: prices}
}

// Snapshot fetches the ticker's history for the period (default 6mo) and
// evaluates the indicator set at the last close.
func (s *Service) Snapshot(ctx context.Context, ticker, period string) (*Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}
	if period == "" {
		period = "6mo"
	}
	lookback, ok := periodLookback[period]
	if !ok {
		return nil, fmt.Errorf("unknown period %q: %w", period, marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "technical.snapshot", "ticker", ticker, "period", period)
	defer op.End()

	end := time.Now().UTC()
	candles, err := s.prices.FetchDailyCandles(op.Context(), ticker, end.Add(-lookback), end)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no price history for %s: %w", ticker, marketdata.ErrNoData)
	}

	return Compute(ticker, candles), nil
}

// Compute evaluates the snapshot over already-fetched candles.
func Compute(ticker string, candles []marketdata.Candle) *Snapshot {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = float64(c.Volume)
	}

	snap := &Snapshot{
		Ticker:       ticker,
		CurrentPrice: closes[len(closes)-1],
		Change1D:     finite(ta.PctChange(closes, 1)),
		Change5D:     finite(ta.PctChange(closes, 5)),
		Change20D:    finite(ta.PctChange(closes, 20)),
		MA5:          finite(ta.SMA(closes, 5)),
		MA10:         finite(ta.SMA(closes, 10)),
		MA20:         finite(ta.SMA(closes, 20)),
		MA50:         finite(ta.SMA(closes, 50)),
		RSI:          finite(ta.RSI(closes, 14)),
		ATR:          finite(ta.ATR(highs, lows, closes, 14)),
	}

	mid, upper, lower := ta.Bollinger(closes, 20, 2)
	snap.BBMiddle, snap.BBUpper, snap.BBLower = finite(mid), finite(upper), finite(lower)

	if avgVol := ta.SMA(volumes, 20); !math.IsNaN(avgVol) && avgVol > 0 {
		ratio := volumes[len(volumes)-1] / avgVol
		snap.VolumeRatio = &ratio
	}

	snap.Signals, snap.StrengthScore = deriveSignals(snap)
	snap.OverallSignal = overallSignal(snap.StrengthScore)
	return snap
}

func deriveSignals(s *Snapshot) ([]string, int) {
	signals := []string{}
	score := 0
	price := s.CurrentPrice

	// Trend from the moving-average stack.
	switch {
	case s.MA5 != nil && s.MA10 != nil && s.MA20 != nil && s.MA50 != nil &&
		price > *s.MA5 && *s.MA5 > *s.MA10 && *s.MA10 > *s.MA20 && *s.MA20 > *s.MA50:
		signals = append(signals, "STRONG_UPTREND")
		score += 3
	case s.MA20 != nil && s.MA50 != nil && price > *s.MA20 && *s.MA20 > *s.MA50:
		signals = append(signals, "UPTREND")
		score += 2
	case s.MA5 != nil && s.MA10 != nil && s.MA20 != nil && s.MA50 != nil &&
		price < *s.MA5 && *s.MA5 < *s.MA10 && *s.MA10 < *s.MA20 && *s.MA20 < *s.MA50:
		signals = append(signals, "STRONG_DOWNTREND")
		score -= 3
	case s.MA20 != nil && s.MA50 != nil && price < *s.MA20 && *s.MA20 < *s.MA50:
		signals = append(signals, "DOWNTREND")
		score -= 2
	}

	if s.RSI != nil {
		switch {
		case *s.RSI < 20:
			signals = append(signals, "EXTREMELY_OVERSOLD")
			score += 2
		case *s.RSI < 30:
			signals = append(signals, "OVERSOLD")
			score++
		case *s.RSI > 80:
			signals = append(signals, "EXTREMELY_OVERBOUGHT")
			score -= 2
		case *s.RSI > 70:
			signals = append(signals, "OVERBOUGHT")
			score--
		}
	}

	if s.BBUpper != nil && s.BBLower != nil && s.BBMiddle != nil && *s.BBMiddle > 0 {
		width := *s.BBUpper - *s.BBLower
		if width > 0 {
			position := (price - *s.BBLower) / width
			if position > 0.8 {
				signals = append(signals, "BB_OVERBOUGHT")
			} else if position < 0.2 {
				signals = append(signals, "BB_OVERSOLD")
			}
		}
		if width / *s.BBMiddle < 0.1 {
			signals = append(signals, "BB_SQUEEZE")
		}
	}

	if s.VolumeRatio != nil {
		if *s.VolumeRatio > 2 {
			signals = append(signals, "HIGH_VOLUME")
			score++
		} else if *s.VolumeRatio < 0.5 {
			signals = append(signals, "LOW_VOLUME")
		}
	}

	return signals, score
}

func overallSignal(score int) string {
	switch {
	case score >= 4:
		return "STRONG_BUY"
	case score >= 2:
		return "BUY"
	case score <= -4:
		return "STRONG_SELL"
	case score <= -2:
		return "SELL"
	default:
		return "HOLD"
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
