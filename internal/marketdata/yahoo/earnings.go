package yahoo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sitshu/stock-analyst/internal/cache"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
)

// visualizationQuery is the request body for the earnings-date table. This is
// the same endpoint the Yahoo earnings calendar page queries.
type visualizationQuery struct {
	Offset        int      `json:"offset"`
	Size          int      `json:"size"`
	SortField     string   `json:"sortField"`
	SortType      string   `json:"sortType"`
	EntityIDType  string   `json:"entityIdType"`
	IncludeFields []string `json:"includeFields"`
	Query         struct {
		Operator string `json:"operator"`
		Operands []any  `json:"operands"`
	} `json:"query"`
}

type visualizationResponse struct {
	Finance struct {
		Result []struct {
			Documents []struct {
				Columns []struct {
					ID string `json:"id"`
				} `json:"columns"`
				Rows [][]any `json:"rows"`
			} `json:"documents"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"finance"`
}

// FetchEarnings returns the ticker's earnings date table, most recent first.
// The table includes both reported quarters and scheduled future dates; the
// EPS fields of future rows come back nil.
func (c *Client) FetchEarnings(ctx context.Context, ticker string, limit int) ([]marketdata.EarningsEvent, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := fmt.Sprintf("yahoo:earnings:%s:%d", ticker, limit)

	return cachedFetch(c, key, cache.TTLEarnings, func() ([]marketdata.EarningsEvent, error) {
		return c.fetchEarnings(ctx, ticker, limit)
	})
}

func (c *Client) fetchEarnings(ctx context.Context, ticker string, limit int) ([]marketdata.EarningsEvent, error) {
	op := logger.StartOperation(ctx, "yahoo.earnings", "ticker", ticker, "limit", limit)
	defer op.End()

	size := limit
	if size <= 0 || size > maxEarningsPageSize {
		size = maxEarningsPageSize
	}

	body := visualizationQuery{
		Size:         size,
		SortField:    visualizationSortKey,
		SortType:     "DESC",
		EntityIDType: visualizationEntity,
		IncludeFields: []string{
			"ticker", "startdatetime", "epsestimate", "epsactual", "epssurprisepct",
		},
	}
	body.Query.Operator = "eq"
	body.Query.Operands = []any{"ticker", ticker}

	resp, err := c.http.POST(op.Context(), visualizationURL, body, c.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch earnings for %s: %w", ticker, err)
	}

	var payload visualizationResponse
	if err := resp.ParseJSON(&payload); err != nil {
		return nil, fmt.Errorf("decode earnings for %s: %w", ticker, err)
	}
	if payload.Finance.Error != nil || len(payload.Finance.Result) == 0 ||
		len(payload.Finance.Result[0].Documents) == 0 {
		return nil, fmt.Errorf("earnings for %s: %w", ticker, marketdata.ErrNoData)
	}

	doc := payload.Finance.Result[0].Documents[0]
	col := make(map[string]int, len(doc.Columns))
	for i, column := range doc.Columns {
		col[column.ID] = i
	}

	events := make([]marketdata.EarningsEvent, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		reportDate, ok := rowTime(row, col, "startdatetime")
		if !ok {
			continue
		}
		events = append(events, marketdata.EarningsEvent{
			ReportDate:  reportDate,
			EPSEstimate: rowFloat(row, col, "epsestimate"),
			EPSActual:   rowFloat(row, col, "epsactual"),
			SurprisePct: rowFloat(row, col, "epssurprisepct"),
		})
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("earnings for %s: empty table: %w", ticker, marketdata.ErrNoData)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ReportDate.After(events[j].ReportDate)
	})
	return events, nil
}

func rowFloat(row []any, col map[string]int, id string) *float64 {
	i, ok := col[id]
	if !ok || i >= len(row) {
		return nil
	}
	if f, ok := row[i].(float64); ok {
		return &f
	}
	return nil
}

func rowTime(row []any, col map[string]int, id string) (time.Time, bool) {
	i, ok := col[id]
	if !ok || i >= len(row) {
		return time.Time{}, false
	}
	s, ok := row[i].(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000Z", time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}
