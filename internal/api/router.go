package api

import (
	"finance/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) RegisterRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.health)

	r.Post("/auth/sign-up", s.signUp)
	r.Post("/auth/sign-in", s.signIn)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.auth))

		r.Get("/settings/registration", s.getRegistration)
		r.Post("/settings/registration/toggle", s.toggleRegistration)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.createTransaction)
			r.Get("/", s.listTransactions)
			r.Get("/summary", s.getSummary)
			r.Get("/export", s.exportTransactions)
			r.Get("/{id}", s.getTransaction)
			r.Patch("/{id}", s.updateTransaction)
			r.Delete("/{id}", s.deleteTransaction)
		})
	})

	return r
}
