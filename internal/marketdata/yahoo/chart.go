package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/cache"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// chartResponse mirrors the v8 chart API payload. Quote arrays may contain
// nulls on half-days and data gaps, hence the pointer elements.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyCandles returns daily bars for the ticker between start and end,
// ordered by date ascending. Bars with a missing close are dropped.
func (c *Client) FetchDailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]marketdata.Candle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := fmt.Sprintf("yahoo:chart:%s:%s:%s", ticker,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	return cachedFetch(c, key, cache.TTLPrices, func() ([]marketdata.Candle, error) {
		return c.fetchDailyCandles(ctx, ticker, start, end)
	})
}

func (c *Client) fetchDailyCandles(ctx context.Context, ticker string, start, end time.Time) ([]marketdata.Candle, error) {
	op := logger.StartOperation(ctx, "yahoo.chart", "ticker", ticker)
	defer op.End()

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,split")

	reqURL := fmt.Sprintf("%s/%s?%s", chartBaseURL, url.PathEscape(ticker), params.Encode())
	resp, err := c.http.GET(op.Context(), reqURL, c.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", ticker, err)
	}

	var payload chartResponse
	if err := resp.ParseJSON(&payload); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", ticker, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart for %s: %s: %w",
			ticker, payload.Chart.Error.Description, marketdata.ErrNoData)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart for %s: empty result: %w", ticker, marketdata.ErrNoData)
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]marketdata.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		candle := marketdata.Candle{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("chart for %s: no usable bars: %w", ticker, marketdata.ErrNoData)
	}
	return candles, nil
}
