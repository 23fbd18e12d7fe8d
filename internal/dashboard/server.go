package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// Server exposes the reporting endpoints over a loader.
type Server struct {
	loader *Loader
}

// NewServer creates a dashboard server reading through the given loader.
func NewServer(loader *Loader) *Server {
	return &Server{loader: loader}
}

// Routes builds the HTTP handler with metrics and CORS middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/api/leads", s.handleLeads)
	r.Get("/api/metrics", s.handleSummary)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// filterFromRequest parses the multi-select filters from repeated query
// parameters.
func filterFromRequest(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		Classificacoes: q["classificacao"],
		Interesses:     q["interesse"],
	}
}

// handleIndex renders the chart page for the filtered subset.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	leads, err := s.loader.Load(r.Context())
	if err != nil {
		slog.Error("Server.handleIndex: failed to load leads", "error", err)
		http.Error(w, "falha ao carregar os dados da planilha", http.StatusBadGateway)
		return
	}

	filtered := filterFromRequest(r).Apply(leads)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderCharts(w, filtered); err != nil {
		slog.Error("Server.handleIndex: failed to render charts", "error", err)
	}
}

// handleLeads returns the filtered lead rows as JSON.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.loader.Load(r.Context())
	if err != nil {
		slog.Error("Server.handleLeads: failed to load leads", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.APIResponse{Status: models.APIStatusError, Message: "failed to load leads"})
		return
	}

	filtered := filterFromRequest(r).Apply(leads)
	writeJSONResponse(w, http.StatusOK, models.APIResponse{Status: models.APIStatusOK, Result: filtered})
}

// handleSummary returns the count metrics for the filtered subset.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	leads, err := s.loader.Load(r.Context())
	if err != nil {
		slog.Error("Server.handleSummary: failed to load leads", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.APIResponse{Status: models.APIStatusError, Message: "failed to load leads"})
		return
	}

	filtered := filterFromRequest(r).Apply(leads)
	writeJSONResponse(w, http.StatusOK, models.APIResponse{Status: models.APIStatusOK, Result: Summarize(filtered)})
}

// writeJSONResponse writes a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}
