package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sitshu/stock-analyst/internal/marketdata"
)

type fakePrices struct {
	lastClose float64
	err       error
}

func (f *fakePrices) FetchDailyCandles(_ context.Context, _ string, _, end time.Time) ([]marketdata.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	candles := make([]marketdata.Candle, 30)
	for i := range candles {
		candles[i] = marketdata.Candle{
			Date:  end.AddDate(0, 0, i-29),
			Close: f.lastClose,
		}
	}
	return candles, nil
}

func TestAddNewPosition(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})

	receipt, err := svc.Add(context.Background(), "aapl", 10, 150)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if receipt.Side != "buy" || receipt.Ticker != "AAPL" {
		t.Errorf("receipt = %+v", receipt)
	}
	if receipt.Cash != startingCash-1500 {
		t.Errorf("cash = %f, want %f", receipt.Cash, float64(startingCash-1500))
	}
}

func TestAddAveragesEntryPrice(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})
	ctx := context.Background()

	if _, err := svc.Add(ctx, "AAPL", 10, 100); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := svc.Add(ctx, "AAPL", 10, 200); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Positions) != 1 {
		t.Fatalf("positions = %d, want 1 merged position", len(summary.Positions))
	}
	pos := summary.Positions[0]
	if pos.Shares != 20 || pos.EntryPrice != 150 {
		t.Errorf("merged position = %f shares at %f, want 20 at 150", pos.Shares, pos.EntryPrice)
	}
}

func TestAddAtLatestClose(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 42})

	receipt, err := svc.Add(context.Background(), "AAPL", 5, 0)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if receipt.Price != 42 {
		t.Errorf("price = %f, want the latest close 42", receipt.Price)
	}
	if receipt.Cash != startingCash-210 {
		t.Errorf("cash = %f, want %f", receipt.Cash, float64(startingCash-210))
	}
}

func TestAddInsufficientCash(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})

	_, err := svc.Add(context.Background(), "AAPL", 2000, 100)
	if !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for an unaffordable buy, got %v", err)
	}

	// The failed buy must not touch state.
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Cash != startingCash || summary.PositionCount != 0 {
		t.Errorf("state after failed buy = cash %f, %d positions", summary.Cash, summary.PositionCount)
	}
}

func TestAddValidation(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})
	ctx := context.Background()

	if _, err := svc.Add(ctx, "  ", 10, 100); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("blank ticker: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Add(ctx, "AAPL", 0, 100); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("zero shares: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Add(ctx, "AAPL", -5, 100); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("negative shares: expected ErrInvalidInput, got %v", err)
	}
}

func TestAddPropagatesPriceLookupFailure(t *testing.T) {
	svc := NewService(&fakePrices{err: marketdata.ErrNoData})

	if _, err := svc.Add(context.Background(), "ZZZZ", 5, 0); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("expected ErrNoData when no close is available, got %v", err)
	}
}

func TestRemoveFullPosition(t *testing.T) {
	prices := &fakePrices{lastClose: 100}
	svc := NewService(prices)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "AAPL", 10, 100); err != nil {
		t.Fatalf("Add: %v", err)
	}
	prices.lastClose = 120

	receipt, err := svc.Remove(ctx, "AAPL", 0)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if receipt.Side != "sell" || receipt.Shares != 10 || receipt.Price != 120 {
		t.Errorf("receipt = %+v", receipt)
	}
	if receipt.Proceeds != 1200 {
		t.Errorf("proceeds = %f, want 1200", receipt.Proceeds)
	}
	if receipt.PnL != 200 {
		t.Errorf("pnl = %f, want 200", receipt.PnL)
	}
	// Bought at 1000, sold at 1200.
	if receipt.Cash != startingCash+200 {
		t.Errorf("cash = %f, want %f", receipt.Cash, float64(startingCash+200))
	}

	if _, err := svc.Remove(ctx, "AAPL", 0); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("second sell: expected ErrNoData, got %v", err)
	}
}

func TestRemovePartialPosition(t *testing.T) {
	prices := &fakePrices{lastClose: 100}
	svc := NewService(prices)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "AAPL", 10, 100); err != nil {
		t.Fatalf("Add: %v", err)
	}
	prices.lastClose = 110

	receipt, err := svc.Remove(ctx, "AAPL", 4)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if receipt.Shares != 4 || receipt.PnL != 40 {
		t.Errorf("receipt = %+v, want 4 shares sold at pnl 40", receipt)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Positions) != 1 || summary.Positions[0].Shares != 6 {
		t.Errorf("remaining position = %+v, want 6 shares", summary.Positions)
	}
}

func TestRemoveFallsBackToEntryPrice(t *testing.T) {
	prices := &fakePrices{lastClose: 100}
	svc := NewService(prices)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "AAPL", 10, 100); err != nil {
		t.Fatalf("Add: %v", err)
	}
	prices.err = marketdata.ErrNoData

	receipt, err := svc.Remove(ctx, "AAPL", 0)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if receipt.Price != 100 || receipt.PnL != 0 {
		t.Errorf("receipt = %+v, want a flat exit at the entry price", receipt)
	}
}

func TestRemoveUnknownTicker(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})

	if _, err := svc.Remove(context.Background(), "ZZZZ", 0); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestSummaryMarksToMarket(t *testing.T) {
	prices := &fakePrices{lastClose: 100}
	svc := NewService(prices)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "AAPL", 10, 100); err != nil {
		t.Fatalf("Add AAPL: %v", err)
	}
	if _, err := svc.Add(ctx, "MSFT", 5, 100); err != nil {
		t.Fatalf("Add MSFT: %v", err)
	}
	prices.lastClose = 110

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.PositionCount != 2 {
		t.Fatalf("position count = %d, want 2", summary.PositionCount)
	}
	if summary.Positions[0].Ticker != "AAPL" || summary.Positions[1].Ticker != "MSFT" {
		t.Errorf("positions not ordered by ticker: %+v", summary.Positions)
	}

	// 15 shares bought at 100, marked at 110.
	if summary.TotalPositionValue != 1650 {
		t.Errorf("total position value = %f, want 1650", summary.TotalPositionValue)
	}
	if summary.TotalUnrealizedPnL != 150 {
		t.Errorf("total pnl = %f, want 150", summary.TotalUnrealizedPnL)
	}
	if summary.Cash != startingCash-1500 {
		t.Errorf("cash = %f, want %f", summary.Cash, float64(startingCash-1500))
	}
	if summary.TotalPortfolioValue != summary.Cash+summary.TotalPositionValue {
		t.Error("total value must be cash plus position value")
	}

	pos := summary.Positions[0]
	if math.Abs(pos.UnrealizedPnLPct-10) > 1e-9 {
		t.Errorf("pnl pct = %f, want 10", pos.UnrealizedPnLPct)
	}
	if pos.Signal == "" {
		t.Error("expected a technical signal on each position")
	}
}

func TestSummaryEmptyPortfolio(t *testing.T) {
	svc := NewService(&fakePrices{lastClose: 100})

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Cash != startingCash || summary.TotalPortfolioValue != startingCash {
		t.Errorf("empty summary = %+v", summary)
	}
	if summary.PositionCount != 0 || len(summary.Positions) != 0 {
		t.Errorf("expected no positions, got %+v", summary.Positions)
	}
}
