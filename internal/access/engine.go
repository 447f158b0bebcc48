package access

import (
	"context"
	"errors"

	"registre/internal/courrier/models"
	"registre/internal/identity"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/platform/sentinel"
	"registre/pkg/requestcontext"
)

// UserDirectory resolves user records for participant display and role checks.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (identity.User, error)
}

// TransferLog supplies past responsibility holders for the participant set.
type TransferLog interface {
	ListByCourrier(ctx context.Context, courrierID id.CourrierID) ([]Handoff, error)
}

// Handoff is the slice of a ledger entry the engine needs.
type Handoff struct {
	FromUserID id.UserID
	ToUserID   id.UserID
}

// Engine answers every per-item authorization question. Transitions in the
// workflow service and grant management both route through it; no caller
// re-derives "is this user allowed" on its own.
type Engine struct {
	grants GrantStore
	users  UserDirectory
	log    TransferLog
}

func NewEngine(grants GrantStore, users UserDirectory, log TransferLog) *Engine {
	return &Engine{grants: grants, users: users, log: log}
}

// CanManageGrants reports whether actor may grant or revoke access on the
// item: the current responsible user, ADMIN and DIRECTOR only.
func (e *Engine) CanManageGrants(c *models.Courrier, actor identity.User) bool {
	return actor.Role.Elevated() || c.IsResponsible(actor.ID)
}

// Grant upserts an access grant. Idempotent: re-granting replaces the level
// for the (item, user) pair.
func (e *Engine) Grant(ctx context.Context, c *models.Courrier, actor identity.User, target id.UserID, level Level) error {
	if !level.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown access level")
	}
	if !e.CanManageGrants(c, actor) {
		return dErrors.New(dErrors.CodeForbidden, "only the responsible user, a director or an admin may share this courrier")
	}
	grant := Grant{
		ID:         id.NewGrantID(),
		CourrierID: c.ID,
		UserID:     target,
		Level:      level,
		GrantedBy:  actor.ID,
		GrantedAt:  requestcontext.Now(ctx),
	}
	if err := e.grants.Upsert(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save grant")
	}
	return nil
}

// Revoke removes any grant for the pair. Removing a non-existent grant is
// not an error.
func (e *Engine) Revoke(ctx context.Context, c *models.Courrier, actor identity.User, target id.UserID) error {
	if !e.CanManageGrants(c, actor) {
		return dErrors.New(dErrors.CodeForbidden, "only the responsible user, a director or an admin may revoke access")
	}
	if err := e.grants.Remove(ctx, c.ID, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke grant")
	}
	return nil
}

// HasAccess reports whether user holds the required level on the item:
// the creator, the current responsible user and ADMIN/DIRECTOR implicitly
// hold every level; otherwise an explicit grant must satisfy it.
func (e *Engine) HasAccess(ctx context.Context, c *models.Courrier, user identity.User, required Level) (bool, error) {
	if user.Role.Elevated() {
		return true, nil
	}
	if c.CreatedBy == user.ID || c.IsResponsible(user.ID) {
		return true, nil
	}
	grant, err := e.grants.Find(ctx, c.ID, user.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check access")
	}
	return grant.Level.Satisfies(required), nil
}

// Grants lists the explicit grants on an item (rights-management panel).
func (e *Engine) Grants(ctx context.Context, courrierID id.CourrierID) ([]Grant, error) {
	grants, err := e.grants.ListByCourrier(ctx, courrierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grants")
	}
	return grants, nil
}

// Participants computes the de-duplicated set of users involved with an
// item: the creator, everyone who ever held responsibility (from the
// ledger) and every grantee. Users removed from the directory since are
// skipped rather than failing the whole set.
func (e *Engine) Participants(ctx context.Context, c *models.Courrier) ([]identity.User, error) {
	seen := make(map[id.UserID]bool)
	ordered := make([]id.UserID, 0, 8)
	add := func(userID id.UserID) {
		if userID.IsNil() || seen[userID] {
			return
		}
		seen[userID] = true
		ordered = append(ordered, userID)
	}

	add(c.CreatedBy)
	if c.ResponsibleUserID != nil {
		add(*c.ResponsibleUserID)
	}

	handoffs, err := e.log.ListByCourrier(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer history")
	}
	for _, h := range handoffs {
		add(h.FromUserID)
		add(h.ToUserID)
	}

	grants, err := e.grants.ListByCourrier(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grants")
	}
	for _, g := range grants {
		add(g.UserID)
	}

	out := make([]identity.User, 0, len(ordered))
	for _, userID := range ordered {
		user, err := e.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve participant")
		}
		out = append(out, user)
	}
	return out, nil
}
