package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", handler.Home).Methods("GET")
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stocks", handler.ListStocks).Methods("GET")
	api.HandleFunc("/stocks", handler.AddStock).Methods("POST")
	api.HandleFunc("/stocks/{symbol}", handler.RemoveStock).Methods("DELETE")
	api.HandleFunc("/stocks/{symbol}/shares", handler.UpdateShares).Methods("PUT")
	api.HandleFunc("/stocks/{symbol}/chart", handler.GetChart).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/scrape-range", handler.ScrapeRange).Methods("POST")
	api.HandleFunc("/stocks/{symbol}/export", handler.ExportSeries).Methods("GET")
	api.HandleFunc("/report/summary", handler.GetSummary).Methods("GET")

	// wrapped outside the router so unmatched routes are logged and tagged too
	return CORS(RequestID(AccessLog(r)))
}
