package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
	"github.com/bobmcallan/kestrel/internal/strategy"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Strategies
	mux.HandleFunc("/api/strategies", s.handleStrategyList)

	// Backtests
	mux.HandleFunc("/api/backtests/batch", s.handleBacktestBatch)
	mux.HandleFunc("/api/backtests/", s.routeBacktests)
	mux.HandleFunc("/api/backtests", s.handleBacktests)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
		"version": common.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.Version,
		"build":      common.Build,
		"git_commit": common.GitCommit,
		"go_version": runtime.Version(),
	})
}

func (s *Server) handleStrategyList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": strategy.Types(),
	})
}

// --- Backtest handlers ---

// backtestRequest is the wire form of a run submission. Dates arrive as
// YYYY-MM-DD strings; initial capital accepts a JSON number or string.
type backtestRequest struct {
	AccountID      int64                 `json:"account_id"`
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
	InitialCapital decimal.Decimal       `json:"initial_capital"`
	Symbols        []string              `json:"symbols"`
	Strategy       models.StrategyConfig `json:"strategy"`
}

func (req *backtestRequest) toConfig() (models.BacktestConfig, error) {
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return models.BacktestConfig{}, fmt.Errorf("invalid start_date %q: %w", req.StartDate, err)
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return models.BacktestConfig{}, fmt.Errorf("invalid end_date %q: %w", req.EndDate, err)
	}

	return models.BacktestConfig{
		AccountID:      req.AccountID,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		Symbols:        req.Symbols,
		Strategy:       req.Strategy,
	}, nil
}

// resultStatusCode maps a run's terminal status to an HTTP status. An
// aborted run carries its fault in the body; the 422 flags it as a data or
// engine problem rather than a malformed request.
func resultStatusCode(result *models.BacktestResult) int {
	if result.Status == models.RunAborted {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func (s *Server) handleBacktests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBacktestList(w, r)
	case http.MethodPost:
		s.handleBacktestSubmit(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleBacktestSubmit(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	config, err := req.toConfig()
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.app.BacktestService.Run(r.Context(), config)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Backtest error: %v", err))
		return
	}

	WriteJSON(w, resultStatusCode(result), result)
}

func (s *Server) handleBacktestBatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Backtests []backtestRequest `json:"backtests"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Backtests) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one backtest is required")
		return
	}

	configs := make([]models.BacktestConfig, len(req.Backtests))
	for i, b := range req.Backtests {
		config, err := b.toConfig()
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("backtest %d: %v", i, err))
			return
		}
		configs[i] = config
	}

	results, err := s.app.BacktestService.RunBatch(r.Context(), configs)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Batch error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func (s *Server) handleBacktestList(w http.ResponseWriter, r *http.Request) {
	results, err := s.app.BacktestService.ListResults(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing backtests: %v", err))
		return
	}

	// Listing returns summaries; full trade and snapshot detail comes from
	// the per-run endpoint.
	summaries := make([]map[string]interface{}, len(results))
	for i, res := range results {
		summaries[i] = map[string]interface{}{
			"id":         res.ID,
			"created_at": res.CreatedAt,
			"status":     res.Status,
			"strategy":   res.Config.Strategy.Type,
			"symbols":    res.Config.Symbols,
			"metrics":    res.Metrics,
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"backtests": summaries,
	})
}

// routeBacktests dispatches /api/backtests/{id} and /api/backtests/{id}/chart.
func (s *Server) routeBacktests(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/chart") {
		s.handleBacktestChart(w, r, PathParam(r, "/api/backtests/", "/chart"))
		return
	}

	id := PathParam(r, "/api/backtests/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Backtest id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleBacktestGet(w, r, id)
	default:
		RequireMethod(w, r, http.MethodGet)
	}
}

func (s *Server) handleBacktestGet(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.app.BacktestService.GetResult(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Backtest not found: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleBacktestChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.BacktestService.RenderEquityChart(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Chart error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
