package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) create(t models.Type, subject string) *models.Courrier {
	attrs := models.CreateAttrs{Type: t, Subject: subject, Sender: "Société Y", Recipient: "Société Y"}
	c, err := s.store.Create(s.ctx, t, 2025, func(ref string) (*models.Courrier, error) {
		return models.NewCourrier(id.NewCourrierID(), ref, attrs, id.NewUserID(), s.now)
	})
	s.Require().NoError(err)
	return c
}

func (s *MemoryStoreSuite) TestRefAllocation() {
	s.Run("sequential refs scoped by type and year", func() {
		first := s.create(models.TypeIncoming, "a")
		second := s.create(models.TypeIncoming, "b")
		outgoing := s.create(models.TypeOutgoing, "c")

		s.Equal("ENT-2025-0001", first.Ref)
		s.Equal("ENT-2025-0002", second.Ref)
		s.Equal("SOR-2025-0001", outgoing.Ref)
	})

	s.Run("build failure does not consume a ref", func() {
		_, err := s.store.Create(s.ctx, models.TypeIncoming, 2025, func(ref string) (*models.Courrier, error) {
			return nil, fmt.Errorf("boom")
		})
		s.Require().Error(err)

		c := s.create(models.TypeIncoming, "after failure")
		s.Equal("ENT-2025-0001", c.Ref)
	})

	s.Run("concurrent creates never duplicate refs", func() {
		store := NewInMemory()
		const n = 50
		refs := make(chan string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := store.Create(s.ctx, models.TypeIncoming, 2025, func(ref string) (*models.Courrier, error) {
					return models.NewCourrier(id.NewCourrierID(), ref, models.CreateAttrs{
						Type: models.TypeIncoming, Subject: "x", Sender: "y",
					}, id.NewUserID(), s.now)
				})
				s.Require().NoError(err)
				refs <- c.Ref
			}()
		}
		wg.Wait()
		close(refs)

		seen := make(map[string]bool, n)
		for ref := range refs {
			s.False(seen[ref], "duplicate ref %s", ref)
			seen[ref] = true
		}
		s.Len(seen, n)
	})
}

func (s *MemoryStoreSuite) TestLookups() {
	s.Run("finds by id and by ref", func() {
		c := s.create(models.TypeIncoming, "lookup")

		byID, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.Ref, byID.Ref)

		byRef, err := s.store.FindByRef(s.ctx, c.Ref)
		s.Require().NoError(err)
		s.Equal(c.ID, byRef.ID)
	})

	s.Run("unknown id and ref return ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewCourrierID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByRef(s.ctx, "ENT-2025-9999")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reads never alias the canonical record", func() {
		c := s.create(models.TypeIncoming, "aliasing")
		read, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		read.Subject = "mutated copy"

		again, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("aliasing", again.Subject)
	})
}

func (s *MemoryStoreSuite) TestList() {
	incoming := s.create(models.TypeIncoming, "first")
	s.create(models.TypeOutgoing, "second")
	third := s.create(models.TypeIncoming, "third")

	s.Run("returns insertion order", func() {
		all, err := s.store.List(s.ctx, Filter{})
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal("first", all[0].Subject)
		s.Equal("third", all[2].Subject)
	})

	s.Run("filters by type", func() {
		in, err := s.store.List(s.ctx, Filter{Type: models.TypeIncoming})
		s.Require().NoError(err)
		s.Len(in, 2)
	})

	s.Run("filters by status and responsible", func() {
		owner := id.NewUserID()
		_, err := s.store.Execute(s.ctx, incoming.ID,
			func(c *models.Courrier) error { return nil },
			func(c *models.Courrier) { c.SetResponsible(owner, s.now) },
		)
		s.Require().NoError(err)

		mine, err := s.store.List(s.ctx, Filter{ResponsibleUserID: &owner})
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal(incoming.ID, mine[0].ID)

		received, err := s.store.List(s.ctx, Filter{Status: models.StatusReceived})
		s.Require().NoError(err)
		s.Len(received, 2)
		_ = third
	})
}

func (s *MemoryStoreSuite) TestExecute() {
	s.Run("validate failure leaves the record untouched", func() {
		c := s.create(models.TypeIncoming, "untouched")
		_, err := s.store.Execute(s.ctx, c.ID,
			func(*models.Courrier) error { return sentinel.ErrInvalidState },
			func(c *models.Courrier) { c.Subject = "should not land" },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		read, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("untouched", read.Subject)
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewCourrierID(),
			func(*models.Courrier) error { return nil },
			func(*models.Courrier) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("serializes concurrent transitions", func() {
		c := s.create(models.TypeIncoming, "contended")
		actor := id.NewUserID()

		var succeeded int32
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Execute(s.ctx, c.ID,
					func(c *models.Courrier) error { return c.CanDigitize() },
					func(c *models.Courrier) { c.ApplyDigitize(actor, s.now) },
				)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// Only the first transition can pass CanDigitize.
		s.Equal(int32(1), succeeded)
	})
}

func (s *MemoryStoreSuite) TestUpdateDetails() {
	s.Run("merges only provided fields", func() {
		c := s.create(models.TypeIncoming, "original")
		notes := "nouvelle note"
		updated, err := s.store.UpdateDetails(s.ctx, c.ID, DetailsPatch{Notes: &notes}, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal("original", updated.Subject)
		s.Equal("nouvelle note", updated.Notes)
		s.Equal(s.now.Add(time.Hour), updated.UpdatedAt)
	})

	s.Run("rejects archived records", func() {
		c := s.create(models.TypeIncoming, "to archive")
		_, err := s.store.Execute(s.ctx, c.ID,
			func(*models.Courrier) error { return nil },
			func(c *models.Courrier) { c.Status = models.StatusArchived },
		)
		s.Require().NoError(err)

		subject := "too late"
		_, err = s.store.UpdateDetails(s.ctx, c.ID, DetailsPatch{Subject: &subject}, s.now)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}
