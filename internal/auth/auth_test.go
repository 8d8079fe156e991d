package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/repository"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(secret, "sess-1", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestTokenRejections(t *testing.T) {
	tok, err := GenerateToken(secret, "sess-1", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("other-secret", tok)
	require.Error(t, err)

	expired, err := GenerateToken(secret, "sess-1", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "sess-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(secret, unsigned)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password1")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", hash)
	assert.True(t, CheckPassword("password1", hash))
	assert.False(t, CheckPassword("password2", hash))
}

func newManager() *Manager {
	return NewManager(repository.NewMemorySessions(100, time.Hour), secret, time.Hour, false)
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("cookie %s not set", CookieName)
	return nil
}

func TestManagerSaveAndLoad(t *testing.T) {
	m := newManager()

	fresh := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, fresh.ID)
	assert.False(t, fresh.Authenticated())

	fresh.Username = "newuser1"
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, fresh))
	c := cookieFrom(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	loaded := m.Load(req)
	assert.Equal(t, fresh.ID, loaded.ID)
	assert.True(t, loaded.Authenticated())
}

func TestManagerIgnoresForgedCookie(t *testing.T) {
	m := newManager()
	s := &models.Session{ID: "victim", Username: "newuser1"}
	require.NoError(t, m.Save(httptest.NewRecorder(), s))

	forged, err := GenerateToken("attacker-secret", "victim", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: forged})

	loaded := m.Load(req)
	assert.NotEqual(t, "victim", loaded.ID)
	assert.False(t, loaded.Authenticated())
}

func TestManagerRenewAndDestroy(t *testing.T) {
	m := newManager()
	s := &models.Session{ID: "before", Username: "newuser1"}
	require.NoError(t, m.Save(httptest.NewRecorder(), s))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Renew(rec, s))
	assert.NotEqual(t, "before", s.ID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec))
	assert.Equal(t, s.ID, m.Load(req).ID)

	rec = httptest.NewRecorder()
	m.Destroy(rec, s)
	assert.Equal(t, -1, cookieFrom(t, rec).MaxAge)
	assert.False(t, m.Load(req).Authenticated())
}

func TestRequireUser(t *testing.T) {
	m := newManager()
	protected := LoadSession(m)(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello " + FromContext(r.Context()).Username))
	})))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	s := &models.Session{ID: "s", Username: "newuser1"}
	saveRec := httptest.NewRecorder()
	require.NoError(t, m.Save(saveRec, s))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookieFrom(t, saveRec))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello newuser1", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	serve := func(s *models.Session) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/certificates", nil)
		if s != nil {
			req = req.WithContext(WithSession(req.Context(), s))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusSeeOther, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&models.Session{ID: "r", Username: "newuser1", Role: models.RoleResident}))
	assert.Equal(t, http.StatusNoContent, serve(&models.Session{ID: "a", Username: "admin", Role: models.RoleAdmin}))
}
