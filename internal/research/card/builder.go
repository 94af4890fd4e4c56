// Package card assembles the single-ticker research snapshot: profile fields
// plus valuation ratios derived with divide-by-zero and missing-field guards.
package card

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// ResearchCard is the dashboard's per-ticker snapshot. Every derived field is
// nil rather than an error when its inputs are missing or unusable.
type ResearchCard struct {
	Ticker       string   `json:"ticker"`
	Name         *string  `json:"name"`
	Sector       *string  `json:"sector"`
	Industry     *string  `json:"industry"`
	Price        *float64 `json:"price"`
	MarketCap    *float64 `json:"market_cap"`
	PE           *float64 `json:"pe"`
	PFCF         *float64 `json:"pfcf"`
	EVEBITDA     *float64 `json:"ev_ebitda"`
	GrossMargin  *float64 `json:"gross_margin"`
	ProfitMargin *float64 `json:"profit_margin"`
	Description  *string  `json:"description"`
}

// Builder turns provider profiles into research cards.
type Builder struct {
	source marketdata.ProfileSource
}

// NewBuilder creates a builder over the given profile source.
func NewBuilder(source marketdata.ProfileSource) *Builder {
	return &Builder{source: source}
}

// Build fetches the ticker's fundamentals and derives the valuation ratios.
func (b *Builder) Build(ctx context.Context, ticker string) (*ResearchCard, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", marketdata.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "card.build", "ticker", ticker)
	defer op.End()

	profile, err := b.source.FetchProfile(op.Context(), ticker)
	if err != nil {
		return nil, err
	}

	return FromProfile(profile), nil
}

// FromProfile derives a card from an already-fetched profile.
func FromProfile(p *marketdata.Profile) *ResearchCard {
	card := &ResearchCard{
		Ticker:       p.Ticker,
		Name:         p.Name,
		Sector:       p.Sector,
		Industry:     p.Industry,
		Price:        p.Price,
		GrossMargin:  p.GrossMargin,
		ProfitMargin: p.ProfitMargin,
		Description:  p.Description,
	}

	card.MarketCap = p.MarketCap
	if card.MarketCap == nil && p.SharesOutstanding != nil && p.Price != nil {
		derived := *p.SharesOutstanding * *p.Price
		card.MarketCap = &derived
	}

	card.PE = safeRatio(p.Price, p.TrailingEPS)
	card.PFCF = positiveRatio(card.MarketCap, p.FreeCashflow)
	card.EVEBITDA = positiveRatio(p.EnterpriseValue, p.EBITDA)
	return card
}

// safeRatio divides num by den, nil on any missing or zero denominator.
func safeRatio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	r := *num / *den
	return &r
}

// positiveRatio is safeRatio restricted to positive denominators; a negative
// free cash flow or EBITDA makes the multiple meaningless.
func positiveRatio(num, den *float64) *float64 {
	if den != nil && *den <= 0 {
		return nil
	}
	return safeRatio(num, den)
}
