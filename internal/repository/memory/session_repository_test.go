package memory

import (
	"testing"
	"time"

	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/usage"
	"doc-review-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	s := store.NewSession(criteria.MustDefaultCatalog(), usage.DefaultRates, "")

	repo.Save(s)
	got, ok := repo.Get(s.ID)
	assert.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, repo.Count())

	repo.Delete(s.ID)
	_, ok = repo.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionRepository_IdleExpiry(t *testing.T) {
	repo := NewSessionRepository(300 * time.Millisecond)
	s := store.NewSession(criteria.MustDefaultCatalog(), usage.DefaultRates, "")
	repo.Save(s)

	time.Sleep(150 * time.Millisecond)
	_, ok := repo.Get(s.ID)
	assert.True(t, ok, "access refreshes expiry")

	time.Sleep(150 * time.Millisecond)
	_, ok = repo.Get(s.ID)
	assert.True(t, ok)

	time.Sleep(450 * time.Millisecond)
	_, ok = repo.Get(s.ID)
	assert.False(t, ok)
}
