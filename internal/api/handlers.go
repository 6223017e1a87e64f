package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc *portfolio.Service
}

// NewHandler creates a new Handler
func NewHandler(svc *portfolio.Service) *Handler {
	return &Handler{svc: svc}
}

// Home handles GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Backend is live! Use /api/... endpoints."))
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("store ping failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListStocks handles GET /api/stocks
func (h *Handler) ListStocks(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.ListPositions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// AddStock handles POST /api/stocks
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.svc.AddPosition(r.Context(), req.Symbol); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Stock added"})
}

// RemoveStock handles DELETE /api/stocks/{symbol}
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemovePosition(r.Context(), mux.Vars(r)["symbol"]); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Stock deleted"})
}

// UpdateShares handles PUT /api/stocks/{symbol}/shares
func (h *Handler) UpdateShares(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string      `json:"action"`
		Amount json.Number `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	action, err := portfolio.ParseAction(req.Action)
	if err != nil {
		respondError(w, r, err)
		return
	}
	amount, err := strconv.ParseInt(req.Amount.String(), 10, 64)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: amount must be an integer", portfolio.ErrInvalidInput))
		return
	}

	shares, err := h.svc.AdjustShares(r.Context(), mux.Vars(r)["symbol"], action, amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	message := "Buy successful"
	if action == portfolio.ActionSell {
		message = "Sell successful"
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": message, "shares": shares})
}

// GetChart handles GET /api/stocks/{symbol}/chart
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	series, err := h.svc.GetChart(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// ScrapeRange handles POST /api/stocks/{symbol}/scrape-range
func (h *Handler) ScrapeRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.svc.IngestRange(r.Context(), mux.Vars(r)["symbol"], req.Start, req.End)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Scraped %d records for %s.", result.Ingested, result.Symbol),
		"ingested": result.Ingested,
		"skipped":  len(result.Skipped),
	})
}

// ExportSeries handles GET /api/stocks/{symbol}/export
func (h *Handler) ExportSeries(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.ExportSeries(r.Context(), mux.Vars(r)["symbol"], r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", "attachment;filename="+file.Name)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// GetSummary handles GET /api/report/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summarize(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", portfolio.ErrInvalidInput)
	}
	return nil
}

// errorStatus maps a service error to its status code and client message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, portfolio.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, portfolio.ErrInvalidOperation):
		return http.StatusBadRequest, "Not enough shares to sell"
	case errors.Is(err, portfolio.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, portfolio.ErrExternalFetch):
		return http.StatusInternalServerError, "Scraping failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
