package repository

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bagumbayan/brgydocs/internal/models"
)

var sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "brgy_sessions_active",
	Help: "Server-side sessions currently held in memory.",
})

// SessionStore holds server-side session state keyed by session id.
type SessionStore interface {
	Get(id string) (*models.Session, bool)
	Save(s *models.Session)
	Delete(id string)
}

// MemorySessions is a bounded LRU whose entries expire ttl after their last save.
// Values are copied in and out, so callers may mutate what they get.
type MemorySessions struct {
	cache *expirable.LRU[string, *models.Session]
	ttl   time.Duration
}

func NewMemorySessions(maxSize int, ttl time.Duration) *MemorySessions {
	onEvict := func(string, *models.Session) { sessionsActive.Dec() }
	return &MemorySessions{
		cache: expirable.NewLRU[string, *models.Session](maxSize, onEvict, ttl),
		ttl:   ttl,
	}
}

func (m *MemorySessions) Get(id string) (*models.Session, bool) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (m *MemorySessions) Save(s *models.Session) {
	c := s.Clone()
	c.ExpiresAt = time.Now().Add(m.ttl)
	s.ExpiresAt = c.ExpiresAt
	if !m.cache.Contains(s.ID) {
		sessionsActive.Inc()
	}
	m.cache.Add(s.ID, c)
}

func (m *MemorySessions) Delete(id string) {
	m.cache.Remove(id)
}

func (m *MemorySessions) Len() int {
	return m.cache.Len()
}
