package card

import (
	"context"
	"errors"
	"testing"

	"github.com/sitshu/stock-analyst/internal/marketdata"
)

type fakeProfiles struct {
	profile *marketdata.Profile
	err     error
}

func (f *fakeProfiles) FetchProfile(_ context.Context, _ string) (*marketdata.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func fp(v float64) *float64 { return &v }

func TestFromProfileDerivesRatios(t *testing.T) {
	card := FromProfile(&marketdata.Profile{
		Ticker:          "AAPL",
		Price:           fp(200),
		TrailingEPS:     fp(8),
		MarketCap:       fp(3000e9),
		FreeCashflow:    fp(100e9),
		EnterpriseValue: fp(3100e9),
		EBITDA:          fp(125e9),
	})

	if card.PE == nil || *card.PE != 25 {
		t.Errorf("PE = %v, want 25", card.PE)
	}
	if card.PFCF == nil || *card.PFCF != 30 {
		t.Errorf("PFCF = %v, want 30", card.PFCF)
	}
	if card.EVEBITDA == nil || *card.EVEBITDA != 24.8 {
		t.Errorf("EVEBITDA = %v, want 24.8", card.EVEBITDA)
	}
}

func TestFromProfileGuards(t *testing.T) {
	card := FromProfile(&marketdata.Profile{
		Ticker:          "LOSSY",
		Price:           fp(50),
		TrailingEPS:     fp(0),
		MarketCap:       fp(10e9),
		FreeCashflow:    fp(-2e9),
		EnterpriseValue: fp(12e9),
		EBITDA:          fp(-1e9),
	})

	if card.PE != nil {
		t.Errorf("PE with zero EPS = %v, want nil", *card.PE)
	}
	if card.PFCF != nil {
		t.Errorf("PFCF with negative FCF = %v, want nil", *card.PFCF)
	}
	if card.EVEBITDA != nil {
		t.Errorf("EVEBITDA with negative EBITDA = %v, want nil", *card.EVEBITDA)
	}
}

func TestFromProfileDerivesMarketCap(t *testing.T) {
	card := FromProfile(&marketdata.Profile{
		Ticker:            "AAPL",
		Price:             fp(100),
		SharesOutstanding: fp(1e9),
	})
	if card.MarketCap == nil || *card.MarketCap != 100e9 {
		t.Errorf("derived market cap = %v, want 1e11", card.MarketCap)
	}
}

func TestFromProfileMissingFieldsStayNil(t *testing.T) {
	card := FromProfile(&marketdata.Profile{Ticker: "EMPTY"})
	if card.PE != nil || card.PFCF != nil || card.EVEBITDA != nil || card.MarketCap != nil {
		t.Error("expected all derived fields nil for an empty profile")
	}
}

func TestBuildValidatesTicker(t *testing.T) {
	b := NewBuilder(&fakeProfiles{profile: &marketdata.Profile{Ticker: "AAPL"}})
	if _, err := b.Build(context.Background(), "  "); !errors.Is(err, marketdata.ErrInvalidInput) {
		t.Errorf("blank ticker: expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildPropagatesNoData(t *testing.T) {
	b := NewBuilder(&fakeProfiles{err: marketdata.ErrNoData})
	if _, err := b.Build(context.Background(), "ZZZZ"); !errors.Is(err, marketdata.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
