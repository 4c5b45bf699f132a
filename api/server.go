/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for browser clients

ROUTE GROUPS:
  /health                   Liveness (no auth)
  /1.0/accounts/*           Account management (jwttoken cookie)
  /1.0/transactions/*       Posting, history, status (jwttoken cookie)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Cookie check middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the cross-cutting parts of the router.
type RouterOptions struct {
	CORSOrigins []string
	Auth        TokenChecker // nil disables the cookie check
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health", h.Health)

	r.Route("/1.0", func(r chi.Router) {
		r.Use(RequireToken(opts.Auth))

		// Account routes
		r.Route("/accounts/account", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{iban}", h.CheckAccount)
			r.Get("/{iban}/balance", h.GetBalance)
			r.Put("/{iban}/balance", h.SetBalance)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/transaction", h.CreateTransaction)
			r.Post("/query", h.QueryTransactions)
			r.Post("/status", h.GetTransactionStatus)
		})
	})

	return r
}
