package access

import (
	"context"
	"sync"

	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// GrantStore persists access grants.
type GrantStore interface {
	// Upsert replaces any existing grant for the (courrier, user) pair.
	Upsert(ctx context.Context, grant Grant) error
	Remove(ctx context.Context, courrierID id.CourrierID, userID id.UserID) error
	Find(ctx context.Context, courrierID id.CourrierID, userID id.UserID) (Grant, error)
	ListByCourrier(ctx context.Context, courrierID id.CourrierID) ([]Grant, error)
}

// InMemoryGrantStore keeps grants keyed by courrier then user.
type InMemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[id.CourrierID]map[id.UserID]Grant
}

func NewInMemoryGrantStore() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[id.CourrierID]map[id.UserID]Grant)}
}

func (s *InMemoryGrantStore) Upsert(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.grants[grant.CourrierID]
	if !ok {
		byUser = make(map[id.UserID]Grant)
		s.grants[grant.CourrierID] = byUser
	}
	byUser[grant.UserID] = grant
	return nil
}

func (s *InMemoryGrantStore) Remove(_ context.Context, courrierID id.CourrierID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byUser, ok := s.grants[courrierID]; ok {
		delete(byUser, userID)
	}
	return nil
}

func (s *InMemoryGrantStore) Find(_ context.Context, courrierID id.CourrierID, userID id.UserID) (Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if byUser, ok := s.grants[courrierID]; ok {
		if grant, ok := byUser[userID]; ok {
			return grant, nil
		}
	}
	return Grant{}, sentinel.ErrNotFound
}

func (s *InMemoryGrantStore) ListByCourrier(_ context.Context, courrierID id.CourrierID) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := s.grants[courrierID]
	out := make([]Grant, 0, len(byUser))
	for _, grant := range byUser {
		out = append(out, grant)
	}
	return out, nil
}
