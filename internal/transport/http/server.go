// Package transporthttp exposes the research services over HTTP as JSON.
package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitshu/stock-analyst/internal/config"
	"github.com/sitshu/stock-analyst/internal/logger"
	"github.com/sitshu/stock-analyst/internal/marketdata"
	"github.com/sitshu/stock-analyst/internal/news"
	"github.com/sitshu/stock-analyst/internal/research/backtest"
	"github.com/sitshu/stock-analyst/internal/research/calendar"
	"github.com/sitshu/stock-analyst/internal/research/card"
	"github.com/sitshu/stock-analyst/internal/research/portfolio"
	"github.com/sitshu/stock-analyst/internal/research/reaction"
	"github.com/sitshu/stock-analyst/internal/research/technical"
)

const requestTimeout = 30 * time.Second

// Server wires the research services to their routes.
type Server struct {
	cards     *card.Builder
	analyzer  *reaction.Analyzer
	headlines *news.Service
	technical *technical.Service
	calendar  *calendar.Service
	backtest  *backtest.Runner
	portfolio *portfolio.Service
	earnings  marketdata.EarningsSource
	cfg       *config.Config
}

// NewServer creates the HTTP server over a market data provider.
func NewServer(cfg *config.Config, provider marketdata.Provider, headlines *news.Service) *Server {
	analyzer := reaction.NewAnalyzer(reaction.Config{
		DefaultEvents:  cfg.Reaction.DefaultEvents,
		BaselineWindow: cfg.Reaction.BaselineWindow,
	}, provider)

	return &Server{
		cards:     card.NewBuilder(provider),
		analyzer:  analyzer,
		headlines: headlines,
		technical: technical.NewService(provider),
		calendar:  calendar.NewService(provider, analyzer, cfg.Calendar.Watchlist),
		backtest:  backtest.NewRunner(provider, provider),
		portfolio: portfolio.NewService(provider),
		earnings:  provider,
		cfg:       cfg,
	}
}

// Routes returns the router with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /profile/{ticker}", s.handleProfile)
	mux.HandleFunc("GET /earnings/{ticker}", s.handleEarnings)
	mux.HandleFunc("GET /reaction/{ticker}", s.handleReaction)
	mux.HandleFunc("GET /news/{ticker}", s.handleNews)
	mux.HandleFunc("GET /technical/{ticker}", s.handleTechnical)
	mux.HandleFunc("GET /calendar/earnings", s.handleCalendar)
	mux.HandleFunc("GET /calendar/high-volatility", s.handleHighVolatility)
	mux.HandleFunc("GET /backtest/earnings/{ticker}", s.handleBacktest)
	mux.HandleFunc("GET /trading/risk-metrics/{ticker}", s.handleRiskMetrics)
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)
	mux.HandleFunc("POST /portfolio/add", s.handlePortfolioAdd)
	mux.HandleFunc("POST /portfolio/remove", s.handlePortfolioRemove)
	return withRequestID(mux)
}

// withRequestID tags every request with a UUID for log correlation.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		logger.Debug(r.Context(), "request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.cards.Build(ctx, r.PathValue("ticker"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ticker := strings.ToUpper(strings.TrimSpace(r.PathValue("ticker")))
	if ticker == "" {
		writeError(w, marketdata.ErrInvalidInput)
		return
	}
	limit, err := intParam(r, "limit", 12)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := s.earnings.FetchEarnings(ctx, ticker, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit, err := intParam(r, "limit", s.analyzer.DefaultLimit())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.analyzer.Analyze(ctx, r.PathValue("ticker"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit, err := intParam(r, "limit", s.cfg.News.MaxHeadlines)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.headlines.Headlines(ctx, r.PathValue("ticker"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTechnical(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.technical.Snapshot(ctx, r.PathValue("ticker"), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	// Calendar fans out across the watchlist; give it more room.
	ctx, cancel := context.WithTimeout(r.Context(), 3*requestTimeout)
	defer cancel()

	daysAhead, err := intParam(r, "days_ahead", s.cfg.Calendar.DaysAhead)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.calendar.Upcoming(ctx, tickerList(r.URL.Query().Get("tickers")), daysAhead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHighVolatility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*requestTimeout)
	defer cancel()

	daysAhead, err := intParam(r, "days_ahead", s.cfg.Calendar.DaysAhead)
	if err != nil {
		writeError(w, err)
		return
	}
	minMove := 5.0
	if raw := r.URL.Query().Get("min_avg_move"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, marketdata.ErrInvalidInput)
			return
		}
		minMove = parsed
	}

	result, err := s.calendar.HighVolatility(ctx, minMove, daysAhead)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lookback, err := intParam(r, "lookback_days", 365)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.backtest.Run(ctx, r.PathValue("ticker"), r.URL.Query().Get("strategy"), lookback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.analyzer.Metrics(ctx, r.PathValue("ticker"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.portfolio.Summary(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePortfolioAdd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req struct {
		Ticker string  `json:"ticker"`
		Shares float64 `json:"shares"`
		Price  float64 `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.portfolio.Add(ctx, req.Ticker, req.Shares, req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePortfolioRemove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req struct {
		Ticker string  `json:"ticker"`
		Shares float64 `json:"shares"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.portfolio.Remove(ctx, req.Ticker, req.Shares)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", marketdata.ErrInvalidInput)
	}
	return nil
}

// intParam parses a positive integer query parameter, falling back to def
// when absent. Zero and negatives are invalid input, not defaults.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, marketdata.ErrInvalidInput
	}
	return v, nil
}

func tickerList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, marketdata.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, marketdata.ErrNoData):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
