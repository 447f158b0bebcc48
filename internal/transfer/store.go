package transfer

import (
	"context"
	"sync"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// Store is the ledger persistence contract. Append-only plus one narrow
// amendment: completing an entry's StatusAfter.
type Store interface {
	Append(ctx context.Context, t *Transfer) error
	SetStatusAfter(ctx context.Context, transferID id.TransferID, status models.Status) error
	// ListByCourrier returns entries in append (chronological) order.
	ListByCourrier(ctx context.Context, courrierID id.CourrierID) ([]*Transfer, error)
}

// InMemory keeps per-courrier entry slices in append order.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.CourrierID][]*Transfer
	byID    map[id.TransferID]*Transfer
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[id.CourrierID][]*Transfer),
		byID:    make(map[id.TransferID]*Transfer),
	}
}

func (s *InMemory) Append(_ context.Context, t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[t.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := t.clone()
	s.entries[t.CourrierID] = append(s.entries[t.CourrierID], stored)
	s.byID[t.ID] = stored
	return nil
}

func (s *InMemory) SetStatusAfter(_ context.Context, transferID id.TransferID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[transferID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.StatusAfter != nil {
		return sentinel.ErrAlreadyUsed
	}
	t.StatusAfter = &status
	return nil
}

func (s *InMemory) ListByCourrier(_ context.Context, courrierID id.CourrierID) ([]*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[courrierID]
	out := make([]*Transfer, 0, len(entries))
	for _, t := range entries {
		out = append(out, t.clone())
	}
	return out, nil
}
