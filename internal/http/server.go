// Package http exposes the ledger over a JSON API. Monetary amounts cross
// the wire as decimal strings; cents stay internal.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roomledger/internal/services"
	"roomledger/internal/storage"
)

type Server struct {
	rooms    *services.RoomService
	expenses *services.ExpenseService
	views    *services.LedgerViews
	storage  *storage.SQLiteRepository
	srv      *http.Server
}

func NewServer(addr string, rooms *services.RoomService, expenses *services.ExpenseService, views *services.LedgerViews, repo *storage.SQLiteRepository) *Server {
	s := &Server{
		rooms:    rooms,
		expenses: expenses,
		views:    views,
		storage:  repo,
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Router builds the route tree. Exposed so tests can drive handlers without
// binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", s.handleCreateRoom)
		r.Post("/rooms/join", s.handleJoinRoom)

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.handleGetRoom)
			r.Get("/members", s.handleListMembers)
			r.Post("/expenses", s.handleCreateExpense)
			r.Get("/expenses", s.handleListExpenses)
			r.Get("/settlement", s.handleSettlement)
			r.Get("/settlement/pairwise", s.handlePairwise)
			r.Get("/analytics", s.handleAnalytics)
		})

		r.Post("/expenses/{expenseID}/status", s.handleSetExpenseStatus)
		r.Get("/expenses/{expenseID}/audit", s.handleAuditTrail)
	})

	return r
}

func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
