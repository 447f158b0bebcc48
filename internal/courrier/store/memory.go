package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// InMemory is the default store. A single RWMutex covers the whole table,
// which trivially gives the single-writer-per-id guarantee Execute requires;
// the registry's volumes do not justify finer locking.
type InMemory struct {
	mu        sync.RWMutex
	records   map[id.CourrierID]*models.Courrier
	byRef     map[string]id.CourrierID
	order     []id.CourrierID
	refCounts map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[id.CourrierID]*models.Courrier),
		byRef:     make(map[string]id.CourrierID),
		refCounts: make(map[string]int),
	}
}

func (s *InMemory) Create(_ context.Context, t models.Type, year int, build func(ref string) (*models.Courrier, error)) (*models.Courrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := fmt.Sprintf("%s-%d", t.RefPrefix(), year)
	next := s.refCounts[scope] + 1
	ref := fmt.Sprintf("%s-%04d", scope, next)

	c, err := build(ref)
	if err != nil {
		return nil, err
	}
	if _, exists := s.records[c.ID]; exists {
		return nil, sentinel.ErrConflict
	}
	if _, exists := s.byRef[c.Ref]; exists {
		return nil, sentinel.ErrConflict
	}

	s.refCounts[scope] = next
	s.records[c.ID] = c.Clone()
	s.byRef[c.Ref] = c.ID
	s.order = append(s.order, c.ID)
	return c.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.records[courrierID]; ok {
		return c.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByRef(_ context.Context, ref string) (*models.Courrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if courrierID, ok := s.byRef[ref]; ok {
		return s.records[courrierID].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Courrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Courrier, 0, len(s.order))
	for _, courrierID := range s.order {
		if c := s.records[courrierID]; filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, courrierID id.CourrierID, validate func(*models.Courrier) error, mutate func(*models.Courrier)) (*models.Courrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[courrierID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	// Validate and mutate a working copy so a panicking callback cannot leave
	// the canonical record half-applied.
	work := c.Clone()
	if err := validate(work); err != nil {
		return nil, err
	}
	mutate(work)
	s.records[courrierID] = work
	return work.Clone(), nil
}

func (s *InMemory) UpdateDetails(_ context.Context, courrierID id.CourrierID, patch DetailsPatch, now time.Time) (*models.Courrier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[courrierID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.Archived() {
		return nil, sentinel.ErrInvalidState
	}
	work := c.Clone()
	applyPatch(work, patch, now)
	s.records[courrierID] = work
	return work.Clone(), nil
}

func applyPatch(c *models.Courrier, patch DetailsPatch, now time.Time) {
	if patch.Subject != nil {
		c.Subject = *patch.Subject
	}
	if patch.Notes != nil {
		c.Notes = *patch.Notes
	}
	if patch.Attachment != nil {
		c.Attachment = *patch.Attachment
	}
	if patch.Priority != nil {
		c.Priority = *patch.Priority
	}
	if patch.ProcessingDeadline != nil {
		d := *patch.ProcessingDeadline
		c.ProcessingDeadline = &d
	}
	c.UpdatedAt = now
}
