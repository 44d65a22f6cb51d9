package memory

import (
	"time"

	"doc-review-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps review sessions in process memory. A session
// expires after ttl without access.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	purge := ttl / 6
	if purge < time.Second {
		purge = time.Second
	}
	return &SessionRepository{
		cache: cache.New(ttl, purge),
		ttl:   ttl,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and refreshes its expiry.
func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*store.Session)
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
