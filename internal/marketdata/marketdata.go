package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrNoData indicates the upstream provider returned nothing usable for the
// requested ticker or field. Callers surface it as a "no data" state, not a
// crash.
var ErrNoData = errors.New("market data unavailable")

// ErrInvalidInput indicates a malformed request (empty ticker, non-positive
// limit). It is raised before any upstream call is made.
var ErrInvalidInput = errors.New("invalid input")

// EarningsEvent is one row of a ticker's earnings history. EPS and revenue
// fields are nil when the provider has no figure (future events, sparse
// coverage).
type EarningsEvent struct {
	ReportDate         time.Time `json:"report_date"`
	EPSEstimate        *float64  `json:"eps_estimate"`
	EPSActual          *float64  `json:"eps_actual"`
	SurprisePct        *float64  `json:"surprise_pct"`
	RevenueEstimate    *float64  `json:"revenue_estimate"`
	RevenueActual      *float64  `json:"revenue_actual"`
	RevenueSurprisePct *float64  `json:"revenue_surprise_pct"`
}

// Profile is the raw fundamentals snapshot a provider returns for a ticker.
// Ratio arithmetic lives in research/card, not here.
type Profile struct {
	Ticker            string   `json:"ticker"`
	Name              *string  `json:"name"`
	Sector            *string  `json:"sector"`
	Industry          *string  `json:"industry"`
	Description       *string  `json:"description"`
	Price             *float64 `json:"price"`
	MarketCap         *float64 `json:"market_cap"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
	TrailingEPS       *float64 `json:"trailing_eps"`
	FreeCashflow      *float64 `json:"free_cashflow"`
	EnterpriseValue   *float64 `json:"enterprise_value"`
	EBITDA            *float64 `json:"ebitda"`
	GrossMargin       *float64 `json:"gross_margin"`
	ProfitMargin      *float64 `json:"profit_margin"`
}

// Candle is one daily bar. Reaction math only reads Close; the technical
// snapshot uses the full bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ProfileSource supplies ticker fundamentals.
type ProfileSource interface {
	FetchProfile(ctx context.Context, ticker string) (*Profile, error)
}

// EarningsSource supplies earnings date/surprise history, most recent first.
type EarningsSource interface {
	FetchEarnings(ctx context.Context, ticker string, limit int) ([]EarningsEvent, error)
}

// PriceSource supplies daily candles ordered by date ascending.
type PriceSource interface {
	FetchDailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]Candle, error)
}

// Provider bundles the three sources. The Yahoo client implements all of
// them; swapping in a paid API later means implementing this and touching
// nothing else.
type Provider interface {
	ProfileSource
	EarningsSource
	PriceSource
}
