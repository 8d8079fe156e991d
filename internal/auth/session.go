package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/repository"
)

const CookieName = "brgy_session"

// Manager binds browser cookies to server-side sessions.
type Manager struct {
	store  repository.SessionStore
	secret string
	ttl    time.Duration
	secure bool
}

func NewManager(store repository.SessionStore, secret string, ttl time.Duration, secureCookie bool) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl, secure: secureCookie}
}

// Load returns the session named by the request cookie, or a fresh unsaved
// one when the cookie is missing, tampered with or expired.
func (m *Manager) Load(r *http.Request) *models.Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if claims, err := ValidateToken(m.secret, c.Value); err == nil {
			if s, ok := m.store.Get(claims.SessionID); ok {
				return s
			}
		}
	}
	return &models.Session{ID: uuid.NewString()}
}

// Save stores s and refreshes the cookie.
func (m *Manager) Save(w http.ResponseWriter, s *models.Session) error {
	token, err := GenerateToken(m.secret, s.ID, m.ttl)
	if err != nil {
		return err
	}
	m.store.Save(s)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Renew moves s to a new id, dropping the old one. Called on login.
func (m *Manager) Renew(w http.ResponseWriter, s *models.Session) error {
	m.store.Delete(s.ID)
	s.ID = uuid.NewString()
	return m.Save(w, s)
}

// Destroy forgets s and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, s *models.Session) {
	m.store.Delete(s.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
