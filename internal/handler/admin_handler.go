package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/repository"
	"github.com/bagumbayan/brgydocs/internal/service"
)

// AdminHandler lists archived certificates for the barangay staff.
type AdminHandler struct {
	archive repository.ArchiveRepository
	docs    *service.DocumentService
	views   *Renderer
	logger  *slog.Logger
}

func NewAdminHandler(archive repository.ArchiveRepository, docs *service.DocumentService, views *Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{archive: archive, docs: docs, views: views, logger: logger}
}

func (h *AdminHandler) Certificates(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	docs, err := h.archive.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list certificates", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("output") == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"certificates": docs, "limit": limit})
		return
	}
	h.views.Render(w, r, http.StatusOK, "admin_certificates", Page{Title: "Issued certificates", Documents: docs})
}

func (h *AdminHandler) Download(w http.ResponseWriter, r *http.Request) {
	format, err := models.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, "invalid format", http.StatusBadRequest)
		return
	}
	serveDocument(w, r, h.docs, h.logger, chi.URLParam(r, "id"), format)
}
