// Package store owns persistence for correspondence records.
//
// The store is the unit of mutual exclusion for the workflow: Execute
// serializes all transition work on one courrier id so set-once timestamps
// and the terminal ARCHIVED status hold under concurrent actors. Reads return
// deep copies and never observe a half-applied transition.
package store

import (
	"context"
	"time"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
)

// Filter narrows List scans. Zero values mean "any".
type Filter struct {
	Type              models.Type
	Status            models.Status
	Service           string
	Priority          models.Priority
	ResponsibleUserID *id.UserID
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c *models.Courrier) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Service != "" && c.Service != f.Service {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	if f.ResponsibleUserID != nil && !c.IsResponsible(*f.ResponsibleUserID) {
		return false
	}
	return true
}

// DetailsPatch updates non-workflow fields. Status, stage timestamps and
// actor stamps have no representation here on purpose: they change only
// through Execute, driven by the workflow service.
type DetailsPatch struct {
	Subject            *string
	Notes              *string
	Attachment         *string
	Priority           *models.Priority
	ProcessingDeadline *time.Time
}

// Store is the persistence contract shared by the in-memory and postgres
// implementations.
type Store interface {
	// Create allocates the next reference for the record's type and year,
	// invokes build with it, and inserts the result atomically. Two
	// concurrent creates can never receive the same ref.
	Create(ctx context.Context, t models.Type, year int, build func(ref string) (*models.Courrier, error)) (*models.Courrier, error)

	FindByID(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error)
	FindByRef(ctx context.Context, ref string) (*models.Courrier, error)

	// List returns a snapshot in insertion order; cheap to repeat for
	// polling consumers.
	List(ctx context.Context, filter Filter) ([]*models.Courrier, error)

	// Execute runs validate then mutate while holding the per-id write lock
	// (mutex or SELECT ... FOR UPDATE) and returns the updated record. If
	// validate fails nothing is written.
	Execute(ctx context.Context, courrierID id.CourrierID, validate func(*models.Courrier) error, mutate func(*models.Courrier)) (*models.Courrier, error)

	// UpdateDetails merges non-workflow fields.
	UpdateDetails(ctx context.Context, courrierID id.CourrierID, patch DetailsPatch, now time.Time) (*models.Courrier, error)
}
