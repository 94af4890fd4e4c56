package reaction

import "time"

// Item is the reaction of the stock to one earnings event: percentage price
// change from the anchor trading day's close to the close 1 and 5 trading
// days later. Returns are nil when the price series ends too soon (a very
// recent or future report date).
type Item struct {
	ReportDate            time.Time `json:"report_date"`
	EPSEstimate           *float64  `json:"eps_estimate"`
	EPSActual             *float64  `json:"eps_actual"`
	SurprisePct           *float64  `json:"surprise_pct"`
	Return1D              *float64  `json:"return_1d"`
	Return5D              *float64  `json:"return_5d"`
	BaselineVolatilityPct *float64  `json:"baseline_volatility_pct"`
}

// Summary aggregates the next-day moves across the returned items.
type Summary struct {
	AverageUpsidePct   *float64 `json:"average_upside_pct"`
	AverageDownsidePct *float64 `json:"average_downside_pct"`
	AverageAbsMovePct  *float64 `json:"average_abs_move_pct"`
	BeatsCount         int      `json:"beats_count"`
	MissesCount        int      `json:"misses_count"`
}

// Response is the full earnings-reaction payload for one ticker, items
// ordered by report date descending.
type Response struct {
	Ticker  string  `json:"ticker"`
	Items   []Item  `json:"items"`
	Summary Summary `json:"summary"`
}

// RiskMetrics summarizes historical earnings moves for position sizing. All
// figures are over absolute next-day moves; zero values mean no usable
// history rather than an error.
type RiskMetrics struct {
	Ticker     string  `json:"ticker"`
	AvgMovePct float64 `json:"avg_move_pct"`
	MaxMovePct float64 `json:"max_move_pct"`
	Volatility float64 `json:"volatility"`
	WinRate    float64 `json:"win_rate"`
	SampleSize int     `json:"sample_size"`
}

// Config holds the analyzer's tunables.
type Config struct {
	// DefaultEvents is the lookback used when the caller does not pass one.
	DefaultEvents int

	// BaselineWindow is the rolling window (in trading days) for the
	// pre-event volatility baseline.
	BaselineWindow int

	// PricePadDays extends the price fetch window (in calendar days) before
	// the earliest event so the baseline has enough trading days of history.
	PricePadDays int
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		DefaultEvents:  8,
		BaselineWindow: 20,
		PricePadDays:   45,
	}
}
