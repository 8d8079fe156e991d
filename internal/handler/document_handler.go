package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/service"
)

const msgFormDataNotFound = "Form data not found"

// DocumentHandler generates the certificate for the session's submission
// and serves it for download.
type DocumentHandler struct {
	docs     *service.DocumentService
	sessions *auth.Manager
	views    *Renderer
	logger   *slog.Logger
}

func NewDocumentHandler(docs *service.DocumentService, sessions *auth.Manager, views *Renderer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, sessions: sessions, views: views, logger: logger}
}

func (h *DocumentHandler) Generated(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.current(w, r)
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, "document_generated", Page{
		Title:    "Document generated",
		Success:  "Document Successfully Generated",
		Document: doc,
	})
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	format, err := models.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, "invalid format", http.StatusBadRequest)
		return
	}
	doc, ok := h.current(w, r)
	if !ok {
		return
	}
	serveDocument(w, r, h.docs, h.logger, doc.ID, format)
}

// current returns the session's generated document, generating it on first use.
func (h *DocumentHandler) current(w http.ResponseWriter, r *http.Request) (*models.GeneratedDocument, bool) {
	s := auth.FromContext(r.Context())
	if s.Submission == nil {
		http.Error(w, msgFormDataNotFound, http.StatusNotFound)
		return nil, false
	}
	if s.DocumentID != "" {
		doc, rc, err := h.docs.Open(r.Context(), s.DocumentID, models.FormatDOCX)
		if err == nil {
			rc.Close()
			return doc, true
		}
		if !errors.Is(err, service.ErrDocumentNotFound) {
			h.fail(w, r, "open document", err)
			return nil, false
		}
	}

	doc, err := h.docs.Generate(r.Context(), s.Submission)
	if err != nil {
		h.fail(w, r, "generate document", err)
		return nil, false
	}
	s.DocumentID = doc.ID
	saveSession(w, r, h.sessions, s, h.logger)
	return doc, true
}

func (h *DocumentHandler) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.logger.ErrorContext(r.Context(), what, slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// serveDocument streams a stored document as an attachment.
func serveDocument(w http.ResponseWriter, r *http.Request, docs *service.DocumentService, logger *slog.Logger, id string, format models.Format) {
	doc, rc, err := docs.Open(r.Context(), id, format)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		logger.ErrorContext(r.Context(), "open document", slog.String("id", id), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.WarnContext(r.Context(), "download interrupted", slog.String("id", id), slog.String("error", err.Error()))
	}
}
