// Package portfolio tracks a paper portfolio in memory: positions with
// average-cost entries, a cash balance, and a marked-to-market summary. State
// lives for the process lifetime only; there is no persistence.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
	"github.com/sitshu/stock-analyst/internal/research/technical"
)

const startingCash = 100_000

// position is the held state for one ticker.
type position struct {
	ticker     string
	shares     float64
	entryPrice float64
	entryDate  time.Time
}

// PositionView is one position marked to the latest close.
type PositionView struct {
	Ticker           string    `json:"ticker"`
	Shares           float64   `json:"shares"`
	EntryPrice       float64   `json:"entry_price"`
	EntryDate        time.Time `json:"entry_date"`
	CurrentPrice     float64   `json:"current_price"`
	MarketValue      float64   `json:"market_value"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	UnrealizedPnLPct float64   `json:"unrealized_pnl_pct"`
	Signal           string    `json:"signal"`
}

// Summary is the portfolio marked to market.
type Summary struct {
	Cash                  float64        `json:"cash"`
	TotalPositionValue    float64        `json:"total_position_value"`
	TotalPortfolioValue   float64        `json:"total_portfolio_value"`
	TotalUnrealizedPnL    float64        `json:"total_unrealized_pnl"`
	TotalUnrealizedPnLPct float64        `json:"total_unrealized_pnl_pct"`
	Positions             []PositionView `json:"positions"`
	PositionCount         int            `json:"position_count"`
}

// TradeReceipt reports an executed buy or sell. Proceeds and PnL are only
// meaningful on sells.
type TradeReceipt struct {
	Side     string  `json:"side"` // buy or sell
	Ticker   string  `json:"ticker"`
	Shares   float64 `json:"shares"`
	Price    float64 `json:"price"`
	Proceeds float64 `json:"proceeds"`
	PnL      float64 `json:"pnl"`
	Cash     float64 `json:"cash"`
}

// Service is the in-memory paper portfolio. Safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	prices    marketdata.PriceSource
	positions map[string]*position
	cash      float64
}

// NewService creates a portfolio with the starting cash balance.
func NewService(prices marketdata.PriceSource) *Service {
	return &Service{
		prices:    prices,
		positions: make(map[string]*position),
		cash:      startingCash,
	}
}

// Add buys shares of the ticker, averaging the entry price into any existing
// position. A non-positive price means "at the latest close". Buying more
// than the cash balance covers is invalid input.
func (s *Service) Add(ctx context.Context, ticker string, shares, price float64) (*TradeReceipt, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive, got %f: %w", shares, marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "portfolio.add", "ticker", ticker)
	defer op.End()

	if price <= 0 {
		last, _, err := s.lastClose(op.Context(), ticker)
		if err != nil {
			return nil, err
		}
		price = last
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cost := shares * price
	if cost > s.cash {
		return nil, fmt.Errorf("insufficient cash: need %.2f, have %.2f: %w",
			cost, s.cash, marketdata.ErrInvalidInput)
	}

	if pos, ok := s.positions[ticker]; ok {
		totalShares := pos.shares + shares
		totalCost := pos.shares*pos.entryPrice + cost
		pos.shares = totalShares
		pos.entryPrice = totalCost / totalShares
	} else {
		s.positions[ticker] = &position{
			ticker:     ticker,
			shares:     shares,
			entryPrice: price,
			entryDate:  time.Now().UTC(),
		}
	}
	s.cash -= cost

	return &TradeReceipt{
		Side:   "buy",
		Ticker: ticker,
		Shares: shares,
		Price:  price,
		Cash:   s.cash,
	}, nil
}

// Remove sells shares of the ticker at the latest close (entry price when no
// close is available). Non-positive shares, or more than held, sells the
// whole position. An unknown ticker yields marketdata.ErrNoData.
func (s *Service) Remove(ctx context.Context, ticker string, shares float64) (*TradeReceipt, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "portfolio.remove", "ticker", ticker)
	defer op.End()

	current, _, priceErr := s.lastClose(op.Context(), ticker)

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[ticker]
	if !ok {
		return nil, fmt.Errorf("no position in %s: %w", ticker, marketdata.ErrNoData)
	}
	if priceErr != nil || current <= 0 {
		current = pos.entryPrice
	}

	sold := shares
	if sold <= 0 || sold >= pos.shares {
		sold = pos.shares
		delete(s.positions, ticker)
	} else {
		pos.shares -= sold
	}

	proceeds := sold * current
	pnl := (current - pos.entryPrice) * sold
	s.cash += proceeds

	return &TradeReceipt{
		Side:     "sell",
		Ticker:   ticker,
		Shares:   sold,
		Price:    current,
		Proceeds: proceeds,
		PnL:      pnl,
		Cash:     s.cash,
	}, nil
}

// Summary marks every position to its latest close and annotates it with the
// technical overall signal. A position whose prices cannot be fetched falls
// back to its entry price and a HOLD signal rather than failing the summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	op := logger.StartOperation(ctx, "portfolio.summary")
	defer op.End()
	ctx = op.Context()

	s.mu.Lock()
	cash := s.cash
	held := make([]position, 0, len(s.positions))
	for _, pos := range s.positions {
		held = append(held, *pos)
	}
	s.mu.Unlock()

	sort.Slice(held, func(i, j int) bool { return held[i].ticker < held[j].ticker })

	summary := &Summary{
		Cash:          cash,
		Positions:     make([]PositionView, 0, len(held)),
		PositionCount: len(held),
	}

	for _, pos := range held {
		current := pos.entryPrice
		signal := "HOLD"
		if last, candles, err := s.lastClose(ctx, pos.ticker); err == nil {
			current = last
			signal = technical.Compute(pos.ticker, candles).OverallSignal
		} else {
			logger.Warn(ctx, "portfolio mark-to-market falling back to entry price",
				"ticker", pos.ticker, "error", err)
		}

		view := PositionView{
			Ticker:        pos.ticker,
			Shares:        pos.shares,
			EntryPrice:    pos.entryPrice,
			EntryDate:     pos.entryDate,
			CurrentPrice:  current,
			MarketValue:   current * pos.shares,
			UnrealizedPnL: (current - pos.entryPrice) * pos.shares,
			Signal:        signal,
		}
		if pos.entryPrice != 0 {
			view.UnrealizedPnLPct = (current - pos.entryPrice) / pos.entryPrice * 100
		}

		summary.Positions = append(summary.Positions, view)
		summary.TotalPositionValue += view.MarketValue
		summary.TotalUnrealizedPnL += view.UnrealizedPnL
	}

	summary.TotalPortfolioValue = summary.Cash + summary.TotalPositionValue
	if invested := summary.TotalPortfolioValue - summary.TotalUnrealizedPnL; invested != 0 {
		summary.TotalUnrealizedPnLPct = summary.TotalUnrealizedPnL / invested * 100
	}
	return summary, nil
}

// lastClose fetches recent daily candles and returns the latest close.
func (s *Service) lastClose(ctx context.Context, ticker string) (float64, []marketdata.Candle, error) {
	end := time.Now().UTC()
	candles, err := s.prices.FetchDailyCandles(ctx, ticker, end.AddDate(0, 0, -60), end)
	if err != nil {
		return 0, nil, err
	}
	if len(candles) == 0 {
		return 0, nil, fmt.Errorf("no price history for %s: %w", ticker, marketdata.ErrNoData)
	}
	return candles[len(candles)-1].Close, candles, nil
}
