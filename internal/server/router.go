// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/ayush/expense-tracker/backend/internal/auth"
	"github.com/ayush/expense-tracker/backend/internal/expense"
	"github.com/ayush/expense-tracker/backend/internal/httpio"
	"github.com/ayush/expense-tracker/backend/internal/middleware"
)

// Deps is everything the router needs.
type Deps struct {
	Auth     *auth.Handler
	Expenses *expense.Handler
	Tokens   middleware.TokenVerifier
	Log      logrus.FieldLogger

	CORSOrigins     []string
	ReceiptsEnabled bool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.TokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpio.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes. The bare paths are what the web client calls.
	authRoutes := func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)
		r.With(middleware.RequireAuth(d.Tokens)).Get("/me", d.Auth.Me)
	}
	authRoutes(r)
	r.Route("/api/auth", authRoutes)

	// Expense routes (protected)
	expenseRoutes := func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Tokens))
		r.Post("/add", d.Expenses.Create)
		r.Get("/", d.Expenses.List)
		r.Get("/{id}", d.Expenses.Get)
		r.Put("/{id}", d.Expenses.Update)
		r.Delete("/{id}", d.Expenses.Delete)
		if d.ReceiptsEnabled {
			r.Put("/{id}/receipt", d.Expenses.UploadReceipt)
			r.Get("/{id}/receipt", d.Expenses.DownloadReceipt)
		}
	}
	r.Route("/expenses", expenseRoutes)
	r.Route("/api/expenses", expenseRoutes)

	return r
}
