// Package calendar lists upcoming earnings across a watchlist, annotated
// with each ticker's historical reaction risk metrics.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
	"github.com/sitshu/stock-analyst/internal/research/reaction"
)

// Entry is one upcoming earnings report.
type Entry struct {
	Ticker      string    `json:"ticker"`
	ReportDate  time.Time `json:"report_date"`
	DaysUntil   int       `json:"days_until"`
	EPSEstimate *float64  `json:"eps_estimate"`
	AvgMovePct  float64   `json:"avg_move_pct"`
	MaxMovePct  float64   `json:"max_move_pct"`
	WinRate     float64   `json:"win_rate"`
	Volatility  float64   `json:"volatility"`
}

// Service builds the earnings calendar.
type Service struct {
	earnings  marketdata.EarningsSource
	analyzer  *reaction.Analyzer
	watchlist []string
}

// NewService creates a calendar service. The watchlist is the default ticker
// set when a request names none.
func NewService(earnings marketdata.EarningsSource, analyzer *reaction.Analyzer, watchlist []string) *Service {
	return &Service{earnings: earnings, analyzer: analyzer, watchlist: watchlist}
}

// Upcoming returns earnings scheduled within daysAhead for the given tickers
// (or the watchlist), sorted by days-until ascending. A ticker whose data
// cannot be fetched is skipped rather than failing the whole calendar.
func (s *Service) Upcoming(ctx context.Context, tickers []string, daysAhead int) ([]Entry, error) {
	if daysAhead <= 0 {
		return nil, fmt.Errorf("days_ahead must be positive, got %d: %w", daysAhead, marketdata.ErrInvalidInput)
	}
	if len(tickers) == 0 {
		tickers = s.watchlist
	}

	op := logger.StartOperation(ctx, "calendar.upcoming", "tickers", len(tickers), "days_ahead", daysAhead)
	defer op.End()
	ctx = op.Context()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, daysAhead)

	entries := []Entry{}
	for _, raw := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}

		events, err := s.earnings.FetchEarnings(ctx, ticker, 4)
		if err != nil {
			logger.Warn(ctx, "calendar skipping ticker", "ticker", ticker, "error", err)
			continue
		}

		upcoming := upcomingEvent(events, today, cutoff)
		if upcoming == nil {
			continue
		}

		entry := Entry{
			Ticker:      ticker,
			ReportDate:  upcoming.ReportDate,
			DaysUntil:   int(upcoming.ReportDate.Sub(today).Hours() / 24),
			EPSEstimate: upcoming.EPSEstimate,
		}
		if metrics, err := s.analyzer.Metrics(ctx, ticker); err == nil {
			entry.AvgMovePct = metrics.AvgMovePct
			entry.MaxMovePct = metrics.MaxMovePct
			entry.WinRate = metrics.WinRate
			entry.Volatility = metrics.Volatility
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DaysUntil < entries[j].DaysUntil
	})
	return entries, nil
}

// HighVolatility filters the calendar down to tickers whose average
// historical earnings move meets the threshold, largest movers first.
func (s *Service) HighVolatility(ctx context.Context, minAvgMove float64, daysAhead int) ([]Entry, error) {
	entries, err := s.Upcoming(ctx, nil, daysAhead)
	if err != nil {
		return nil, err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e.AvgMovePct >= minAvgMove {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].AvgMovePct > filtered[j].AvgMovePct
	})
	return filtered, nil
}

// upcomingEvent picks the soonest event in [today, cutoff].
func upcomingEvent(events []marketdata.EarningsEvent, today, cutoff time.Time) *marketdata.EarningsEvent {
	var best *marketdata.EarningsEvent
	for i := range events {
		ev := &events[i]
		if ev.ReportDate.Before(today) || ev.ReportDate.After(cutoff) {
			continue
		}
		if best == nil || ev.ReportDate.Before(best.ReportDate) {
			best = ev
		}
	}
	return best
}
