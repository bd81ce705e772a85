/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/accounts/*      Chart of accounts
  /api/shifts/*        Shift masters + per-shift operations
  /api/dispensers/*    Dispenser masters
  /api/vouchers        Voucher entry
  /api/credit-sales    Credit-sale entry
  /api/ledger/*        Account statements
  /api/books/*         Cash and bank books
  /api/reports/*       Balance sheet
  /api/scenarios/*     Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Run behind the station's reverse proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Chart of accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Delete("/{id}", h.DeactivateAccount)
		})

		// Shift masters and per-shift operations
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Get("/closed", h.ClosedShifts)
			r.Post("/{id}/readings", h.SubmitReading)
			r.Post("/{id}/other-sales", h.SubmitOtherSale)
			r.Post("/{id}/close", h.CloseShift)
		})

		// Dispenser masters
		r.Route("/dispensers", func(r chi.Router) {
			r.Get("/", h.ListDispensers)
			r.Post("/", h.CreateDispenser)
		})

		// Money events
		r.Post("/vouchers", h.CreateVoucher)
		r.Post("/credit-sales", h.CreateCreditSale)

		// Ledger views
		r.Get("/ledger/{accountID}", h.GetStatement)
		r.Route("/books", func(r chi.Router) {
			r.Get("/cash", h.GetCashBook)
			r.Get("/bank", h.GetBankBook)
		})
		r.Get("/reports/balance-sheet", h.GetBalanceSheet)

		// Demo scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
