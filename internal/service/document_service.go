package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/bagumbayan/brgydocs/internal/certificate"
	"github.com/bagumbayan/brgydocs/internal/imaging"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/repository"
	"github.com/bagumbayan/brgydocs/internal/validate"
)

var (
	ErrInvalidFields     = errors.New("invalid information")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnsupportedFormat = imaging.ErrUnsupportedFormat
	ErrEmptyPhoto        = imaging.ErrEmptyUpload
)

var (
	documentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brgy_documents_generated_total",
			Help: "Certificates generated, by document type.",
		},
		[]string{"type"},
	)

	photoRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brgy_photo_rejections_total",
		Help: "Photo uploads rejected for their file extension or for being empty.",
	})
)

// Files written inside each request directory.
const (
	certificateBase = "certificate"
	requestFile     = "request.json"
)

// DocumentConfig locates generated output and the fixed header logos.
type DocumentConfig struct {
	OutputDir string
	LogoLeft  string
	LogoRight string
}

// DocumentService drives a request from submitted form to downloadable file.
type DocumentService struct {
	cfg      DocumentConfig
	uploads  *imaging.Store
	composer *certificate.Composer
	archive  repository.ArchiveRepository
	logger   *slog.Logger
	renders  singleflight.Group
}

func NewDocumentService(cfg DocumentConfig, uploads *imaging.Store, composer *certificate.Composer, archive repository.ArchiveRepository, logger *slog.Logger) *DocumentService {
	if archive == nil {
		archive = repository.NopArchive{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		cfg:      cfg,
		uploads:  uploads,
		composer: composer,
		archive:  archive,
		logger:   logger,
	}
}

// Submit validates a posted form and stores its photo. The returned
// submission is what the session carries until the document is generated.
func (s *DocumentService) Submit(ctx context.Context, t models.DocumentType, data models.FormSubmission, photo *models.UploadedPhoto) (*models.Submission, error) {
	res := validate.Submission(t, data, photo)
	if !res.OK {
		if len(res.Missing) == 0 {
			return nil, ErrInvalidFields
		}
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidFields, strings.Join(res.Missing, ", "))
	}

	sub := &models.Submission{Type: t, Data: make(models.FormSubmission, len(data))}
	for k, v := range data {
		if !models.ControlFields[k] {
			sub.Data[k] = v
		}
	}

	if photo.Present() {
		path, err := s.uploads.Save(ctx, *photo)
		if err != nil {
			if errors.Is(err, imaging.ErrUnsupportedFormat) || errors.Is(err, imaging.ErrEmptyUpload) {
				photoRejections.Inc()
				s.logger.InfoContext(ctx, "photo rejected",
					slog.String("type", string(t)),
					slog.String("filename", photo.Filename),
				)
			}
			return nil, fmt.Errorf("store photo: %w", err)
		}
		sub.PhotoPath = path
	}
	return sub, nil
}

// storedRequest is persisted next to the certificate so other formats can be
// rendered later without the session.
type storedRequest struct {
	Submission *models.Submission `json:"submission"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Generate composes the .docx for sub under a fresh request directory.
func (s *DocumentService) Generate(ctx context.Context, sub *models.Submission) (*models.GeneratedDocument, error) {
	if sub == nil {
		return nil, ErrInvalidFields
	}
	id := uuid.NewString()
	dir := filepath.Join(s.cfg.OutputDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}

	req := storedRequest{Submission: sub, CreatedAt: time.Now().UTC()}
	meta, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, requestFile), meta, 0o644); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	path := filepath.Join(dir, certificateBase+models.FormatDOCX.Extension())
	if err := s.composer.ComposeFile(ctx, path, sub.Fields(), s.assets(sub)); err != nil {
		return nil, err
	}
	documentsGenerated.WithLabelValues(string(sub.Type)).Inc()

	doc, err := s.describe(id, sub.Type, models.FormatDOCX, path, req.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.archiveFile(ctx, doc)

	s.logger.InfoContext(ctx, "document generated",
		slog.String("id", id),
		slog.String("type", string(sub.Type)),
		slog.String("name", sub.Fields().FullName()),
		slog.Int64("size", doc.Size),
	)
	return doc, nil
}

// Open returns a reader over a generated document. A PDF is rendered on
// first request. When the request directory is gone the archive is consulted.
func (s *DocumentService) Open(ctx context.Context, id string, f models.Format) (*models.GeneratedDocument, io.ReadCloser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrDocumentNotFound
	}
	dir := filepath.Join(s.cfg.OutputDir, id)

	req, err := readRequest(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return s.openArchived(ctx, id, f)
	}
	if err != nil {
		return nil, nil, err
	}

	path := filepath.Join(dir, certificateBase+f.Extension())
	if f == models.FormatPDF {
		if err := s.ensurePDF(ctx, id, path, req); err != nil {
			return nil, nil, err
		}
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.openArchived(ctx, id, f)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	doc, err := s.describe(id, req.Submission.Type, f, path, req.CreatedAt)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return doc, file, nil
}

// ensurePDF renders the PDF once per id. The render is shared by every
// caller waiting on it, so it is not tied to the first caller's cancellation.
func (s *DocumentService) ensurePDF(ctx context.Context, id, path string, req *storedRequest) error {
	ctx = context.WithoutCancel(ctx)
	_, err, _ := s.renders.Do(id, func() (any, error) {
		if _, err := os.Stat(path); err == nil {
			return nil, nil
		}
		sub := req.Submission
		if err := s.composer.ComposePDFFile(ctx, path, sub.Fields(), s.assets(sub), id); err != nil {
			return nil, err
		}
		doc, err := s.describe(id, sub.Type, models.FormatPDF, path, req.CreatedAt)
		if err != nil {
			return nil, err
		}
		s.archiveFile(ctx, doc)
		return nil, nil
	})
	return err
}

func (s *DocumentService) openArchived(ctx context.Context, id string, f models.Format) (*models.GeneratedDocument, io.ReadCloser, error) {
	doc, content, err := s.archive.Get(ctx, id, f)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read archive: %w", err)
	}
	if doc.FileName == "" {
		doc.FileName = doc.Type.DownloadName(f)
	}
	return doc, io.NopCloser(bytes.NewReader(content)), nil
}

func (s *DocumentService) assets(sub *models.Submission) certificate.Assets {
	return certificate.Assets{
		LogoLeft:  s.cfg.LogoLeft,
		LogoRight: s.cfg.LogoRight,
		Photo:     sub.PhotoPath,
	}
}

func (s *DocumentService) describe(id string, t models.DocumentType, f models.Format, path string, created time.Time) (*models.GeneratedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	return &models.GeneratedDocument{
		ID:          id,
		Type:        t,
		Format:      f,
		Path:        path,
		FileName:    t.DownloadName(f),
		ContentType: f.ContentType(),
		Size:        info.Size(),
		CreatedAt:   created,
	}, nil
}

// archiveFile copies doc into the archive. Failures are logged only.
func (s *DocumentService) archiveFile(ctx context.Context, doc *models.GeneratedDocument) {
	content, err := os.ReadFile(doc.Path)
	if err == nil {
		err = s.archive.Put(ctx, doc, content)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "archive failed",
			slog.String("id", doc.ID),
			slog.String("format", string(doc.Format)),
			slog.String("error", err.Error()),
		)
	}
}

func readRequest(dir string) (*storedRequest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, requestFile))
	if err != nil {
		return nil, err
	}
	var req storedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Submission == nil {
		return nil, fmt.Errorf("decode request: %w", ErrDocumentNotFound)
	}
	return &req, nil
}
