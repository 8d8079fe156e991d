// Package handler serves the resident-facing pages and the document download.
package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Shared partials; every other file under templates/ is a page.
var partials = map[string]bool{"base.html": true, "fields.html": true}

// Page is the data every template receives.
type Page struct {
	Title         string
	User          string
	Admin         bool
	Error         string
	Success       string
	Form          models.FormSubmission
	FieldErrors   validate.FieldErrors
	DocumentTypes []models.DocumentType
	Document      *models.GeneratedDocument
	Documents     []models.GeneratedDocument
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	shared := []string{"templates/base.html", "templates/fields.html"}
	r := &Renderer{pages: make(map[string]*template.Template), logger: logger}
	for _, n := range names {
		base := path.Base(n)
		if partials[base] {
			continue
		}
		t, err := template.ParseFS(templateFS, append(shared, n)...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Render writes page name with status. The session user is filled in here.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	t, ok := v.pages[name]
	if !ok {
		v.logger.ErrorContext(r.Context(), "unknown template", slog.String("name", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if s := auth.FromContext(r.Context()); s.Authenticated() {
		p.User = s.Username
		p.Admin = s.IsAdmin()
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", p); err != nil {
		v.logger.ErrorContext(r.Context(), "render failed", slog.String("name", name), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formValues flattens a parsed form to its first value per key.
func formValues(r *http.Request) models.FormSubmission {
	out := make(models.FormSubmission, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// saveSession persists s, logging instead of failing the request.
func saveSession(w http.ResponseWriter, r *http.Request, m *auth.Manager, s *models.Session, logger *slog.Logger) {
	if err := m.Save(w, s); err != nil {
		logger.ErrorContext(r.Context(), "save session", slog.String("error", err.Error()))
	}
}
