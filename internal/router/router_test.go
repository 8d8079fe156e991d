package router

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagumbayan/brgydocs/internal/auth"
	"github.com/bagumbayan/brgydocs/internal/certificate"
	"github.com/bagumbayan/brgydocs/internal/handler"
	"github.com/bagumbayan/brgydocs/internal/imaging"
	"github.com/bagumbayan/brgydocs/internal/repository"
	"github.com/bagumbayan/brgydocs/internal/service"
)

type failingChecker struct{}

func (failingChecker) Name() string                     { return "oxidb" }
func (failingChecker) CheckReady(context.Context) error { return errors.New("connection refused") }

func newServer(t *testing.T, checkers ...handler.ReadinessChecker) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	sessions := auth.NewManager(repository.NewMemorySessions(100, time.Hour), "test-secret", time.Hour, false)
	views, err := handler.NewRenderer(logger)
	require.NoError(t, err)

	authSvc := service.NewAuthService(repository.NewMemoryUsers(), logger)
	require.NoError(t, authSvc.SeedAdmin(context.Background(), "admin", "admin123"))
	archive := repository.NopArchive{}
	docs := service.NewDocumentService(
		service.DocumentConfig{OutputDir: filepath.Join(root, "output_documents")},
		imaging.NewStore(filepath.Join(root, "uploads"), logger),
		certificate.NewComposer(certificate.DefaultAuthority(), logger),
		archive,
		logger,
	)

	r := New(logger, sessions, Handlers{
		Auth:     handler.NewAuthHandler(authSvc, sessions, views, logger),
		Pages:    handler.NewPageHandler(views),
		Forms:    handler.NewFormHandler(docs, sessions, views, logger, 4<<20),
		Document: handler.NewDocumentHandler(docs, sessions, views, logger),
		Admin:    handler.NewAdminHandler(archive, docs, views, logger),
		Health:   handler.NewHealthHandler(checkers...),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postForm(t *testing.T, c *http.Client, u string, v url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, v)
	require.NoError(t, err)
	return resp
}

func postMultipart(t *testing.T, c *http.Client, u string, fields map[string]string, photoName string, photo []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photoName != "" {
		fw, err := mw.CreateFormFile("photo", photoName)
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	resp, err := c.Post(u, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 60, 60))))
	return buf.Bytes()
}

func register(t *testing.T, srv *httptest.Server, c *http.Client, username string) {
	t.Helper()
	resp := postForm(t, c, srv.URL+"/register", url.Values{"username": {username}, "password": {"password1"}})
	assert.Equal(t, "/dashboard", resp.Request.URL.Path)
	assert.Contains(t, body(t, resp), "Hello, "+username)
}

func clearanceFields() map[string]string {
	return map[string]string{
		"first_name":  "Juan",
		"middle_name": "Dela",
		"last_name":   "Cruz",
		"address":     "123 Main St",
		"purpose":     "Employment",
	}
}

func TestDocumentRoutesRequireLogin(t *testing.T) {
	srv := newServer(t)
	c := newClient(t)

	resp, err := c.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	body(t, resp)

	resp, err = c.Get(srv.URL + "/download_file")
	require.NoError(t, err)
	assert.Equal(t, "/login", resp.Request.URL.Path)
	body(t, resp)
}

func TestRegistrationScenario(t *testing.T) {
	srv := newServer(t)
	c := newClient(t)

	resp := postForm(t, c, srv.URL+"/register", url.Values{"username": {"admin"}, "password": {"password1"}})
	assert.Contains(t, body(t, resp), "Username is restricted, please choose another one")

	resp = postForm(t, c, srv.URL+"/register", url.Values{"username": {"ab"}, "password": {"short1"}})
	assert.Contains(t, body(t, resp), "Password must be at least 8 characters long")

	register(t, srv, c, "newuser1")

	resp, err := c.Get(srv.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, "/", resp.Request.URL.Path)
	body(t, resp)

	resp = postForm(t, c, srv.URL+"/login", url.Values{"username": {"newuser1"}, "password": {"wrong1234"}})
	assert.Contains(t, body(t, resp), "Invalid username or password")

	resp = postForm(t, c, srv.URL+"/login", url.Values{"username": {"newuser1"}, "password": {"password1"}})
	assert.Equal(t, "/dashboard", resp.Request.URL.Path)
	body(t, resp)
}

func TestClearanceFlow(t *testing.T) {
	srv := newServer(t)
	c := newClient(t)
	register(t, srv, c, "juan2024")

	resp, err := c.Get(srv.URL + "/download_file")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Form data not found")

	incomplete := clearanceFields()
	delete(incomplete, "address")
	resp = postMultipart(t, c, srv.URL+"/barangay_clearance_request", incomplete, "me.png", pngBytes(t))
	page := body(t, resp)
	assert.Contains(t, page, "Invalid information. Please correct the fields.")
	assert.Contains(t, page, `value="Juan"`)

	resp = postMultipart(t, c, srv.URL+"/barangay_clearance_request", clearanceFields(), "me.bmp", []byte("BM"))
	assert.Contains(t, body(t, resp), "Invalid file format. Allowed formats: png, jpg, jpeg, gif")

	resp = postMultipart(t, c, srv.URL+"/barangay_clearance_request", clearanceFields(), "me.png", []byte{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/barangay_clearance_request", resp.Request.URL.Path)
	page = body(t, resp)
	assert.Contains(t, page, "The uploaded photo is empty. Please choose another file.")
	assert.Contains(t, page, `value="Cruz"`)

	resp = postMultipart(t, c, srv.URL+"/barangay_clearance_request", clearanceFields(), "me.png", pngBytes(t))
	assert.Equal(t, "/document_generated", resp.Request.URL.Path)
	assert.Contains(t, body(t, resp), "Document Successfully Generated")

	resp, err = c.Get(srv.URL + "/download_file")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename=barangay_clearance.docx`)
	assert.True(t, strings.HasPrefix(body(t, resp), "PK"))

	resp, err = c.Get(srv.URL + "/download_file?format=pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body(t, resp), "%PDF-"))

	resp, err = c.Get(srv.URL + "/download_file?format=odt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body(t, resp)
}

func TestIndigencyFlowAndDispatch(t *testing.T) {
	srv := newServer(t)
	c := newClient(t)
	register(t, srv, c, "ana2024")

	resp := postForm(t, c, srv.URL+"/document_request", url.Values{"document_type": {"indigency"}})
	assert.Equal(t, "/indigency_request", resp.Request.URL.Path)
	body(t, resp)

	resp = postForm(t, c, srv.URL+"/document_request", url.Values{"document_type": {"passport"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Invalid document type")

	resp = postForm(t, c, srv.URL+"/indigency_request", url.Values{"first_name": {"Ana"}, "monthly_income": {""}})
	assert.Contains(t, body(t, resp), "Invalid information. Please correct the fields.")

	resp = postForm(t, c, srv.URL+"/indigency_request", url.Values{"first_name": {"Ana"}, "monthly_income": {"3000"}})
	assert.Equal(t, "/document_generated", resp.Request.URL.Path)
	body(t, resp)

	resp, err := c.Get(srv.URL + "/download_file")
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "indigency_certificate.docx")
	body(t, resp)
}

func TestResidenceRouteExists(t *testing.T) {
	srv := newServer(t)
	c := newClient(t)
	register(t, srv, c, "pedro2024")

	resp := postForm(t, c, srv.URL+"/document_request", url.Values{"document_type": {"residence_certification"}})
	assert.Equal(t, "/residence_certification_request", resp.Request.URL.Path)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "years_of_residence")
}

func TestAdminPages(t *testing.T) {
	srv := newServer(t)

	resident := newClient(t)
	register(t, srv, resident, "newuser1")
	resp, err := resident.Get(srv.URL + "/admin/certificates")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body(t, resp)

	admin := newClient(t)
	resp = postForm(t, admin, srv.URL+"/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	assert.Equal(t, "/dashboard", resp.Request.URL.Path)
	body(t, resp)

	resp, err = admin.Get(srv.URL + "/admin/certificates")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "No certificates have been archived yet.")
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `"status":"ok"`)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body(t, resp)

	failing := newServer(t, failingChecker{})
	resp, err = http.Get(failing.URL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body(t, resp), "connection refused")
}
