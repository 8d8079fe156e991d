package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/handler"
	mw "github.com/bagumbayan/brgydocs/internal/middleware"
	"github.com/bagumbayan/brgydocs/internal/models"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Pages    *handler.PageHandler
	Forms    *handler.FormHandler
	Document *handler.DocumentHandler
	Admin    *handler.AdminHandler
	Health   *handler.HealthHandler
}

func New(logger *slog.Logger, sessions *auth.Manager, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(logger))
	r.Use(mw.Logger(logger))
	r.Use(mw.Metrics)

	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.LoadSession(sessions))

		// Public pages
		r.Get("/", h.Pages.Index)
		r.Get("/login", h.Auth.LoginForm)
		r.Post("/login", h.Auth.Login)
		r.Get("/register", h.Auth.RegisterForm)
		r.Post("/register", h.Auth.Register)
		r.Get("/logout", h.Auth.Logout)

		// Resident pages
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)

			r.Get("/dashboard", h.Pages.Dashboard)
			r.Get("/user_feedback", h.Pages.UserFeedback)
			r.Get("/final_output", h.Pages.FinalOutput)

			r.Get("/document_request", h.Forms.DocumentRequestForm)
			r.Post("/document_request", h.Forms.DocumentRequest)
			for _, t := range models.DocumentTypes {
				path := handler.RequestPath[t]
				r.Get(path, h.Forms.Form(t))
				r.Post(path, h.Forms.Submit(t))
			}

			r.Get("/document_generated", h.Document.Generated)
			r.Get("/download_file", h.Document.Download)
		})

		// Barangay staff
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/certificates", h.Admin.Certificates)
			r.Get("/certificates/{id}", h.Admin.Download)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "page not found", http.StatusNotFound)
	})

	return r
}
