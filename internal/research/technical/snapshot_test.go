package technical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sitshu/stock-analyst/internal/marketdata"
)

type fakePrices struct {
	candles []marketdata.Candle
	err     error
}

func (f *fakePrices) FetchDailyCandles(_ context.Context, _ string, _, _ time.Time) ([]marketdata.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

// risingCandles builds n daily bars stepping up by one per day.
func risingCandles(n int) []marketdata.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, n)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = marketdata.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return candles
}

func hasSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

func TestComputeUptrend(t *testing.T) {
	snap := Compute("AAPL", risingCandles(60))

	if snap.CurrentPrice != 159 {
		t.Errorf("current price = %f, want 159", snap.CurrentPrice)
	}
	if snap.MA5 == nil || snap.MA50 == nil {
		t.Fatal("expected moving averages over 60 bars")
	}
	if *snap.MA5 <= *snap.MA50 {
		t.Errorf("uptrend should stack MAs: MA5 %f <= MA50 %f", *snap.MA5, *snap.MA50)
	}
	if !hasSignal(snap.Signals, "STRONG_UPTREND") {
		t.Errorf("expected STRONG_UPTREND in %v", snap.Signals)
	}
	// A relentless uptrend also maxes out RSI.
	if snap.RSI == nil || *snap.RSI != 100 {
		t.Errorf("RSI = %v, want 100", snap.RSI)
	}
	if !hasSignal(snap.Signals, "EXTREMELY_OVERBOUGHT") {
		t.Errorf("expected EXTREMELY_OVERBOUGHT in %v", snap.Signals)
	}
	if snap.StrengthScore != 1 {
		t.Errorf("strength score = %d, want 1 (trend +3, RSI -2)", snap.StrengthScore)
	}
}

func TestComputeShortHistoryLeavesIndicatorsNil(t *testing.T) {
	snap := Compute("AAPL", risingCandles(3))

	if snap.MA5 != nil || snap.MA50 != nil || snap.RSI != nil || snap.ATR != nil {
		t.Error("expected nil indicators over 3 bars")
	}
	if snap.Change1D == nil {
		t.Error("expected 1-day change over 3 bars")
	}
	if snap.OverallSignal != "HOLD" {
		t.Errorf("overall = %s, want HOLD", snap.OverallSignal)
	}
}

func TestOverallSignalThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{5, "STRONG_BUY"},
		{4, "STRONG_BUY"},
		{2, "BUY"},
		{1, "HOLD"},
		{0, "HOLD"},
		{-1, "HOLD"},
		{-2, "SELL"},
		{-4, "STRONG_SELL"},
	}
	for _, tc := range cases {
		if got := overallSignal(tc.score); got != tc.want {
			t.Errorf("overallSignal(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestSnapshotValidation(t *testing.T) {
	svc := NewService(&fakePrices{candles: risingCandles(60)})

	if _, err := svc.Snapshot(context.Background(), "", "6mo"); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("empty ticker: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Snapshot(context.Background(), "AAPL", "2w"); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("unknown period: expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotDefaultsPeriodAndMapsEmptyHistory(t *testing.T) {
	svc := NewService(&fakePrices{candles: risingCandles(60)})
	snap, err := svc.Snapshot(context.Background(), "aapl", "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Ticker != "AAPL" {
		t.Errorf("ticker = %s, want AAPL", snap.Ticker)
	}

	empty := NewService(&fakePrices{})
	if _, err := empty.Snapshot(context.Background(), "AAPL", "1mo"); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("empty history: expected ErrNoData, got %v", err)
	}
}
