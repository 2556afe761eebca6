// Package api provides the HTTP server for homeledger. It is the CRUD
// and presentation collaborator around the settlement core: field-level
// validation happens here, while the engine only enforces amount
// positivity.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homeledger/homeledger/internal/app/settlement"
	"github.com/homeledger/homeledger/internal/domain"
	"github.com/homeledger/homeledger/internal/infra/sqlite"
)

// Server is the homeledger HTTP API server.
type Server struct {
	db             *sqlite.DB
	settler        *settlement.Service
	sessionTTL     time.Duration
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(db *sqlite.DB, settler *settlement.Service, sessionTTL time.Duration) *Server {
	return &Server{db: db, settler: settler, sessionTTL: sessionTTL}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		// Everything below requires a session.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/logout", s.handleLogout)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
			r.Put("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/payments", s.handleListPayments)
			r.Post("/payments", s.handleCreatePayment)
			r.Delete("/payments/{id}", s.handleDeletePayment)

			r.Get("/credits", s.handleListCredits)
			r.Get("/debts", s.handleListDebts)

			r.Get("/meter-readings", s.handleListMeterReadings)
			r.Post("/meter-readings", s.handleCreateMeterReading)
			r.Get("/meter-stats", s.handleMeterStats)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/months/{year}/{month}", s.handleMonthDetail)
			r.Post("/months/{year}/{month}/payall", s.handlePayAll)
		})
	})

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels to HTTP statuses. Every
// settlement failure is non-fatal: the transaction already rolled back,
// the caller just gets told what went wrong.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNoOutstandingDebt):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConstraint):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeError(w, http.StatusServiceUnavailable, "temporary conflict, please retry")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
