package notification

import (
	"context"
	"sync"

	id "registre/pkg/domain"
)

// Store persists notices. Append-only; List returns newest first.
type Store interface {
	Append(ctx context.Context, n Notification) error
	// List returns notices visible to forUser, newest first. A nil forUser
	// returns everything (admin feed).
	List(ctx context.Context, forUser *id.UserID) ([]Notification, error)
}

// InMemoryStore keeps notices in arrival order and reverses on read.
type InMemoryStore struct {
	mu      sync.RWMutex
	notices []Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, forUser *id.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0, len(s.notices))
	for i := len(s.notices) - 1; i >= 0; i-- {
		n := s.notices[i]
		if forUser == nil || n.VisibleTo(*forUser) {
			out = append(out, n)
		}
	}
	return out, nil
}
