package identity

import (
	"context"
	"strings"
	"sync"

	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// UserStore is interface-driven so the directory can later move behind LDAP
// or postgres without rewiring the services that resolve actors.
type UserStore interface {
	Save(ctx context.Context, user User) error
	FindByID(ctx context.Context, userID id.UserID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
}

// InMemoryUserStore keeps the provisioned directory in memory. Reference data
// is small and read-mostly; clarity beats cleverness here.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]User
	byEmail map[string]id.UserID
	order   []id.UserID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		s.order = append(s.order, user.ID)
	}
	s.users[user.ID] = user
	s.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return User{}, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[strings.ToLower(email)]; ok {
		return s.users[userID], nil
	}
	return User{}, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.order))
	for _, userID := range s.order {
		out = append(out, s.users[userID])
	}
	return out, nil
}
