package service

import (
	"context"

	"registre/internal/access"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
)

// Share grants target an access level on the item. The engine enforces who
// may share; the service only resolves the actor and checks the target is a
// real user.
func (w *Workflow) Share(ctx context.Context, courrierID id.CourrierID, targetID id.UserID, level access.Level) error {
	actor, err := w.actor(ctx)
	if err != nil {
		return err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return err
	}
	if _, err := w.users.GetUser(ctx, targetID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeValidation, "grant target does not exist")
		}
		return err
	}
	if err := w.engine.Grant(ctx, c, actor, targetID, level); err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) && w.metrics != nil {
			w.metrics.IncrementDenied("share")
		}
		return err
	}
	w.logger.InfoContext(ctx, "access granted",
		"courrier_id", c.ID, "target_id", targetID, "level", level, "granted_by", actor.ID)
	return nil
}

// Unshare revokes any grant target holds on the item.
func (w *Workflow) Unshare(ctx context.Context, courrierID id.CourrierID, targetID id.UserID) error {
	actor, err := w.actor(ctx)
	if err != nil {
		return err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return err
	}
	if err := w.engine.Revoke(ctx, c, actor, targetID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) && w.metrics != nil {
			w.metrics.IncrementDenied("unshare")
		}
		return err
	}
	w.logger.InfoContext(ctx, "access revoked",
		"courrier_id", c.ID, "target_id", targetID, "revoked_by", actor.ID)
	return nil
}

// ListGrants returns the explicit grants on an item for the rights panel.
// Visible to anyone who may manage them.
func (w *Workflow) ListGrants(ctx context.Context, courrierID id.CourrierID) ([]access.Grant, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	if !w.engine.CanManageGrants(c, actor) {
		return nil, w.denied("list_grants", "only the responsible user, a director or an admin may view grants")
	}
	return w.engine.Grants(ctx, courrierID)
}

// CheckAccess answers "does user hold level on this item" for callers
// outside the workflow (UI affordances).
func (w *Workflow) CheckAccess(ctx context.Context, courrierID id.CourrierID, userID id.UserID, level access.Level) (bool, error) {
	if !level.Valid() {
		return false, dErrors.New(dErrors.CodeValidation, "unknown access level")
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return false, err
	}
	user, err := w.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return w.engine.HasAccess(ctx, c, user, level)
}
