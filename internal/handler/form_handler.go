package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/service"
	"github.com/bagumbayan/brgydocs/internal/validate"
)

const (
	msgInvalidFields = "Invalid information. Please correct the fields."
	msgInvalidPhoto  = "Invalid file format. Allowed formats: png, jpg, jpeg, gif"
	msgEmptyPhoto    = "The uploaded photo is empty. Please choose another file."
)

// RequestPath is the form route of each document type.
var RequestPath = map[models.DocumentType]string{
	models.BarangayClearance:      "/barangay_clearance_request",
	models.ResidenceCertification: "/residence_certification_request",
	models.Indigency:              "/indigency_request",
}

var formTemplate = map[models.DocumentType]string{
	models.BarangayClearance:      "barangay_clearance_form",
	models.ResidenceCertification: "residence_certification_form",
	models.Indigency:              "indigency_form",
}

// FormHandler shows the request forms and accepts their submissions.
type FormHandler struct {
	docs      *service.DocumentService
	sessions  *auth.Manager
	views     *Renderer
	logger    *slog.Logger
	maxUpload int64
}

func NewFormHandler(docs *service.DocumentService, sessions *auth.Manager, views *Renderer, logger *slog.Logger, maxUpload int64) *FormHandler {
	return &FormHandler{docs: docs, sessions: sessions, views: views, logger: logger, maxUpload: maxUpload}
}

func (h *FormHandler) DocumentRequestForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "document_request", Page{
		Title:         "Request a document",
		DocumentTypes: models.DocumentTypes,
	})
}

// DocumentRequest dispatches to the form of the chosen document type.
func (h *FormHandler) DocumentRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	t, err := models.ParseDocumentType(r.PostForm.Get("document_type"))
	if err != nil {
		http.Error(w, "Invalid document type", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, RequestPath[t], http.StatusSeeOther)
}

// Form renders the empty request form for t.
func (h *FormHandler) Form(t models.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.views.Render(w, r, http.StatusOK, formTemplate[t], Page{Title: t.Title()})
	}
}

// Submit validates a posted form for t. On success the submission is kept in
// the session and the browser moves on to /document_generated.
func (h *FormHandler) Submit(t models.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, photo, err := h.parse(w, r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		sub, err := h.docs.Submit(r.Context(), t, data, photo)
		if err != nil {
			page := Page{Title: t.Title(), Form: data}
			switch {
			case errors.Is(err, service.ErrUnsupportedFormat):
				page.Error = msgInvalidPhoto
			case errors.Is(err, service.ErrEmptyPhoto):
				page.Error = msgEmptyPhoto
			case errors.Is(err, service.ErrInvalidFields):
				page.Error = msgInvalidFields
			default:
				h.logger.ErrorContext(r.Context(), "submit request",
					slog.String("type", string(t)),
					slog.String("error", err.Error()),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			h.views.Render(w, r, http.StatusOK, formTemplate[t], page)
			return
		}

		s := auth.FromContext(r.Context())
		s.Submission = sub
		s.DocumentID = ""
		saveSession(w, r, h.sessions, s, h.logger)
		http.Redirect(w, r, "/document_generated", http.StatusSeeOther)
	}
}

func (h *FormHandler) parse(w http.ResponseWriter, r *http.Request) (models.FormSubmission, *models.UploadedPhoto, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, nil, err
		}
		return formValues(r), nil, nil
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, nil, err
	}
	data := formValues(r)
	file, header, err := r.FormFile(validate.PhotoField)
	if errors.Is(err, http.ErrMissingFile) {
		return data, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	return data, &models.UploadedPhoto{Filename: header.Filename, Content: content}, nil
}
