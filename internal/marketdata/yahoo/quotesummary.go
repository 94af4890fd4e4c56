package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sitshu/stock-analyst/internal/cache"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// number is Yahoo's {"raw": ..., "fmt": "..."} wrapper around numeric fields.
type number struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				ShortName          *string `json:"shortName"`
				LongName           *string `json:"longName"`
				RegularMarketPrice number  `json:"regularMarketPrice"`
				MarketCap          number  `json:"marketCap"`
			} `json:"price"`
			SummaryProfile *struct {
				Sector              *string `json:"sector"`
				Industry            *string `json:"industry"`
				LongBusinessSummary *string `json:"longBusinessSummary"`
			} `json:"summaryProfile"`
			FinancialData *struct {
				FreeCashflow  number `json:"freeCashflow"`
				EBITDA        number `json:"ebitda"`
				GrossMargins  number `json:"grossMargins"`
				ProfitMargins number `json:"profitMargins"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				TrailingEPS       number `json:"trailingEps"`
				EnterpriseValue   number `json:"enterpriseValue"`
				SharesOutstanding number `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchProfile returns the fundamentals snapshot for a ticker.
func (c *Client) FetchProfile(ctx context.Context, ticker string) (*marketdata.Profile, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := "yahoo:profile:" + ticker

	return cachedFetch(c, key, cache.TTLProfile, func() (*marketdata.Profile, error) {
		return c.fetchProfile(ctx, ticker)
	})
}

func (c *Client) fetchProfile(ctx context.Context, ticker string) (*marketdata.Profile, error) {
	op := logger.StartOperation(ctx, "yahoo.quoteSummary", "ticker", ticker)
	defer op.End()

	params := url.Values{}
	params.Set("modules", quoteSummaryModules)

	reqURL := fmt.Sprintf("%s/%s?%s", quoteSummaryBaseURL, url.PathEscape(ticker), params.Encode())
	resp, err := c.http.GET(op.Context(), reqURL, c.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch profile for %s: %w", ticker, err)
	}

	var payload quoteSummaryResponse
	if err := resp.ParseJSON(&payload); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", ticker, err)
	}
	if payload.QuoteSummary.Error != nil || len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("profile for %s: %w", ticker, marketdata.ErrNoData)
	}

	r := payload.QuoteSummary.Result[0]
	profile := &marketdata.Profile{Ticker: ticker}

	if r.Price != nil {
		profile.Name = firstString(r.Price.ShortName, r.Price.LongName)
		profile.Price = r.Price.RegularMarketPrice.Raw
		profile.MarketCap = r.Price.MarketCap.Raw
	}
	if r.SummaryProfile != nil {
		profile.Sector = r.SummaryProfile.Sector
		profile.Industry = r.SummaryProfile.Industry
		profile.Description = r.SummaryProfile.LongBusinessSummary
	}
	if r.FinancialData != nil {
		profile.FreeCashflow = r.FinancialData.FreeCashflow.Raw
		profile.EBITDA = r.FinancialData.EBITDA.Raw
		profile.GrossMargin = r.FinancialData.GrossMargins.Raw
		profile.ProfitMargin = r.FinancialData.ProfitMargins.Raw
	}
	if r.DefaultKeyStatistics != nil {
		profile.TrailingEPS = r.DefaultKeyStatistics.TrailingEPS.Raw
		profile.EnterpriseValue = r.DefaultKeyStatistics.EnterpriseValue.Raw
		profile.SharesOutstanding = r.DefaultKeyStatistics.SharesOutstanding.Raw
	}

	if profile.Price == nil && profile.MarketCap == nil && profile.Name == nil {
		return nil, fmt.Errorf("profile for %s: empty snapshot: %w", ticker, marketdata.ErrNoData)
	}
	return profile, nil
}

func firstString(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
