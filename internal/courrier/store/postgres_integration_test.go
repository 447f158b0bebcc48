//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"registre/internal/courrier/models"
	"registre/internal/courrier/store"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
	"registre/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
	actor id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
	s.actor = id.NewUserID()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "courriers", "courrier_refs"))
}

func (s *PostgresStoreSuite) create(t models.Type, subject string) *models.Courrier {
	now := time.Now().UTC()
	c, err := s.store.Create(context.Background(), t, 2025, func(ref string) (*models.Courrier, error) {
		built, err := models.NewCourrier(id.NewCourrierID(), ref, models.CreateAttrs{
			Type:      t,
			Subject:   subject,
			Sender:    "Société Kivu",
			Recipient: "Province du Kasaï",
		}, s.actor, now)
		if err != nil {
			return nil, err
		}
		built.SetResponsible(s.actor, now)
		return built, nil
	})
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestRefAllocation() {
	first := s.create(models.TypeIncoming, "premier")
	second := s.create(models.TypeIncoming, "second")
	outgoing := s.create(models.TypeOutgoing, "sortant")

	s.Equal("ENT-2025-0001", first.Ref)
	s.Equal("ENT-2025-0002", second.Ref)
	s.Equal("SOR-2025-0001", outgoing.Ref)
}

func (s *PostgresStoreSuite) TestRefAllocation_Concurrent() {
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		i := i
		g.Go(func() error {
			_, err := s.store.Create(ctx, models.TypeIncoming, 2025, func(ref string) (*models.Courrier, error) {
				return models.NewCourrier(id.NewCourrierID(), ref, models.CreateAttrs{
					Type:    models.TypeIncoming,
					Subject: fmt.Sprintf("concurrent %d", i),
					Sender:  "expéditeur",
				}, s.actor, time.Now().UTC())
			})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	items, err := s.store.List(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(items, 20)

	seen := make(map[string]bool, len(items))
	for _, c := range items {
		s.False(seen[c.Ref], "duplicate ref %s", c.Ref)
		seen[c.Ref] = true
	}
}

func (s *PostgresStoreSuite) TestFindRoundTrip() {
	ctx := context.Background()
	created := s.create(models.TypeIncoming, "aller-retour")

	byID, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.Ref, byID.Ref)
	s.Equal(models.StatusReceived, byID.Status)
	s.Require().NotNil(byID.ReceivedAt)
	s.Require().NotNil(byID.ResponsibleUserID)
	s.Equal(s.actor, *byID.ResponsibleUserID)

	byRef, err := s.store.FindByRef(ctx, created.Ref)
	s.Require().NoError(err)
	s.Equal(created.ID, byRef.ID)

	_, err = s.store.FindByID(ctx, id.NewCourrierID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByRef(ctx, "ENT-2025-9999")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecutePersistsTransition() {
	ctx := context.Background()
	created := s.create(models.TypeIncoming, "transition")

	now := time.Now().UTC()
	updated, err := s.store.Execute(ctx, created.ID,
		func(c *models.Courrier) error { return c.CanDigitize() },
		func(c *models.Courrier) { c.ApplyDigitize(s.actor, now) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusDigitized, updated.Status)

	reloaded, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDigitized, reloaded.Status)
	s.Require().NotNil(reloaded.DigitizedAt)
	s.Equal("scan/"+created.ID.String()+".pdf", reloaded.Attachment)

	// A second digitize is rejected and nothing moves.
	_, err = s.store.Execute(ctx, created.ID,
		func(c *models.Courrier) error { return c.CanDigitize() },
		func(c *models.Courrier) { c.ApplyDigitize(s.actor, now) },
	)
	s.Error(err)

	again, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(reloaded.UpdatedAt.Unix(), again.UpdatedAt.Unix())
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	s.create(models.TypeIncoming, "entrant")
	out := s.create(models.TypeOutgoing, "sortant")

	incoming, err := s.store.List(ctx, store.Filter{Type: models.TypeIncoming})
	s.Require().NoError(err)
	s.Require().Len(incoming, 1)
	s.Equal("entrant", incoming[0].Subject)

	pending, err := s.store.List(ctx, store.Filter{Status: models.StatusPendingValidation})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(out.ID, pending[0].ID)

	mine, err := s.store.List(ctx, store.Filter{ResponsibleUserID: &s.actor})
	s.Require().NoError(err)
	s.Len(mine, 2)
}

func (s *PostgresStoreSuite) TestUpdateDetails() {
	ctx := context.Background()
	created := s.create(models.TypeIncoming, "avant")

	subject := "après"
	priority := models.PriorityUrgent
	updated, err := s.store.UpdateDetails(ctx, created.ID, store.DetailsPatch{
		Subject:  &subject,
		Priority: &priority,
	}, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal("après", updated.Subject)
	s.Equal(models.PriorityUrgent, updated.Priority)
	s.Equal("Société Kivu", updated.Sender)

	reloaded, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("après", reloaded.Subject)
}
