package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/service"
)

type AuthHandler struct {
	svc      *service.AuthService
	sessions *auth.Manager
	views    *Renderer
	logger   *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, sessions *auth.Manager, views *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, views: views, logger: logger}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "login", Page{Title: "Log in"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	user, err := h.svc.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.ErrorContext(r.Context(), "login", slog.String("error", err.Error()))
		}
		h.views.Render(w, r, http.StatusOK, "login", Page{
			Title: "Log in",
			Error: "Invalid username or password",
			Form:  models.FormSubmission{"username": username},
		})
		return
	}
	h.signIn(w, r, user)
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "register", Page{Title: "Register"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	user, err := h.svc.Register(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		var regErr *service.RegistrationError
		if !errors.As(err, &regErr) {
			h.logger.ErrorContext(r.Context(), "register", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.views.Render(w, r, http.StatusOK, "register", Page{
			Title:       "Register",
			Error:       regErr.Fields.First(),
			FieldErrors: regErr.Fields,
			Form:        models.FormSubmission{"username": username},
		})
		return
	}
	h.signIn(w, r, user)
}

// signIn marks the session as the user's under a fresh id.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, user *models.User) {
	s := auth.FromContext(r.Context())
	s.Username = user.Username
	s.Role = user.Role
	if err := h.sessions.Renew(w, s); err != nil {
		h.logger.ErrorContext(r.Context(), "renew session", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.logger.InfoContext(r.Context(), "user signed in", slog.String("username", user.Username))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, auth.FromContext(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
