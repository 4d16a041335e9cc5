package session

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// MemoryStore keeps operator sessions in-process with a janitor sweep.
type MemoryStore struct {
	cache *cache.Cache
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore sweeps expired sessions every minute.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &MemoryStore{cache: cache.New(defaultTTL, time.Minute)}
}

// Get returns the live session of an operator.
func (m *MemoryStore) Get(_ context.Context, operatorID int64) (domain.Session, bool, error) {
	if x, found := m.cache.Get(key(operatorID)); found {
		return x.(domain.Session), true, nil
	}
	return domain.Session{}, false, nil
}

// Put stores the session for ttl.
func (m *MemoryStore) Put(_ context.Context, s domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	m.cache.Set(key(s.OperatorID), s, ttl)
	return nil
}

// Delete drops the operator session.
func (m *MemoryStore) Delete(_ context.Context, operatorID int64) error {
	m.cache.Delete(key(operatorID))
	return nil
}

func key(operatorID int64) string {
	return "desk:session:" + strconv.FormatInt(operatorID, 10)
}
