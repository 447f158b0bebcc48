package service

import (
	"context"
	"fmt"
	"time"

	"registre/internal/access"
	"registre/internal/courrier/models"
	"registre/internal/identity"
	"registre/internal/notification"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/requestcontext"
)

// Create registers a new correspondence record. Incoming mail is recorded by
// the reception desk (RECEPTIONIST or ADMIN); outgoing drafts by any staff
// member. The creator becomes the initial responsible user.
func (w *Workflow) Create(ctx context.Context, attrs models.CreateAttrs) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if attrs.Type == models.TypeIncoming && actor.Role != identity.RoleReceptionist && actor.Role != identity.RoleAdmin {
		return nil, w.denied("create", "only the reception desk may register incoming mail")
	}
	if attrs.LinkedTo != nil {
		if _, err := w.find(ctx, *attrs.LinkedTo); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "linked courrier not found")
		}
	}

	now := requestcontext.Now(ctx)
	c, err := w.store.Create(ctx, attrs.Type, now.Year(), func(ref string) (*models.Courrier, error) {
		built, err := models.NewCourrier(id.NewCourrierID(), ref, attrs, actor.ID, now)
		if err != nil {
			return nil, err
		}
		built.SetResponsible(actor.ID, now)
		return built, nil
	})
	if err != nil {
		return nil, w.transitionErr(err)
	}

	if w.metrics != nil {
		w.metrics.IncrementCreated(string(c.Type))
	}
	w.logger.InfoContext(ctx, "courrier created",
		"courrier_id", c.ID, "ref", c.Ref, "type", c.Type, "created_by", actor.ID)

	message := fmt.Sprintf("Nouveau courrier entrant %s enregistré", c.Ref)
	if c.Type == models.TypeOutgoing {
		message = fmt.Sprintf("Nouveau courrier sortant %s créé", c.Ref)
	}
	w.notify(ctx, c.ID, notification.LevelInfo, message, nil)
	return c, nil
}

// Digitize attaches the scan and moves RECEIVED mail to DIGITIZED.
func (w *Workflow) Digitize(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleReceptionist && actor.Role != identity.RoleAdmin {
		return nil, w.denied("digitize", "only the reception desk may digitize mail")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error { return c.CanDigitize() },
		func(c *models.Courrier) { c.ApplyDigitize(actor.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}
	w.observeTransition(ctx, "digitize", start, updated, actor)
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s numérisé avec succès", updated.Ref), nil)
	return updated, nil
}

// Encode routes digitized mail into circuit, assigning the target service
// and deriving the processing deadline from priority.
func (w *Workflow) Encode(ctx context.Context, courrierID id.CourrierID, serviceName, notes string) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error { return c.CanEncode(serviceName) },
		func(c *models.Courrier) { c.ApplyEncode(serviceName, notes, actor.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}
	w.observeTransition(ctx, "encode", start, updated, actor)
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s transmis au service %s", updated.Ref, updated.Service), nil)
	return updated, nil
}

// Process records the agent's treatment outcome on an item in circuit. Only
// agents of the item's assigned service (or ADMIN/DIRECTOR) may process.
func (w *Workflow) Process(ctx context.Context, courrierID id.CourrierID, action models.ProcessAction, notes string) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error {
			if !actor.Role.Elevated() && actor.Service != c.Service {
				return w.denied("process", "only agents of the assigned service may process this courrier")
			}
			return c.CanProcess(action)
		},
		func(c *models.Courrier) { c.ApplyProcess(action, notes, actor.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}
	w.observeTransition(ctx, "process", start, updated, actor)

	message := fmt.Sprintf("Courrier %s traité", updated.Ref)
	if action == models.ActionNeedsValidation {
		message = fmt.Sprintf("Courrier %s en attente de validation", updated.Ref)
	}
	w.notify(ctx, updated.ID, notification.LevelInfo, message, nil)
	return updated, nil
}

// Validate applies the director's verdict on a pending item. A RETURN alerts
// the responsible user; approving an outgoing reply marks the linked
// incoming item as answered.
func (w *Workflow) Validate(ctx context.Context, courrierID id.CourrierID, decision models.Decision, notes string) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Elevated() {
		return nil, w.denied("validate", "only a director or an admin may validate")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error { return c.CanValidate(decision) },
		func(c *models.Courrier) { c.ApplyValidate(decision, notes, actor.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}
	w.observeTransition(ctx, "validate", start, updated, actor)

	switch decision {
	case models.DecisionApprove:
		w.notify(ctx, updated.ID, notification.LevelInfo,
			fmt.Sprintf("Courrier %s validé", updated.Ref), nil)
		if updated.Type == models.TypeOutgoing && updated.LinkedTo != nil {
			w.recordReply(ctx, *updated.LinkedTo, updated.Ref)
		}
	case models.DecisionReject:
		w.notify(ctx, updated.ID, notification.LevelAlert,
			fmt.Sprintf("Courrier %s rejeté et archivé", updated.Ref), updated.ResponsibleUserID)
	case models.DecisionReturn:
		w.notify(ctx, updated.ID, notification.LevelAlert,
			fmt.Sprintf("Courrier %s retourné pour complément de traitement", updated.Ref), updated.ResponsibleUserID)
	}
	return updated, nil
}

// recordReply marks the linked incoming item ANSWERED once its outgoing
// reply is approved. Best effort: a linked item no longer in VALIDATED is
// logged and skipped rather than failing the validation that triggered it.
func (w *Workflow) recordReply(ctx context.Context, incomingID id.CourrierID, replyRef string) {
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, incomingID,
		func(c *models.Courrier) error { return c.CanRecordReply() },
		func(c *models.Courrier) { c.ApplyRecordReply(now) },
	)
	if err != nil {
		w.logger.WarnContext(ctx, "linked incoming courrier not marked answered",
			"courrier_id", incomingID, "reply_ref", replyRef, "error", err)
		return
	}
	if w.metrics != nil {
		w.metrics.IncrementTransition("record_reply")
	}
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s marqué comme répondu (réponse %s)", updated.Ref, replyRef), nil)
}

// Archive moves a validated or answered item to the terminal status.
// Requires WRITE access; a SHARE grant also suffices.
func (w *Workflow) Archive(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	allowed, err := w.engine.HasAccess(ctx, c, actor, access.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !allowed {
		allowed, err = w.engine.HasAccess(ctx, c, actor, access.LevelShare)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, w.denied("archive", "no write or share access to this courrier")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error { return c.CanArchive() },
		func(c *models.Courrier) { c.ApplyArchive(now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}
	w.observeTransition(ctx, "archive", start, updated, actor)
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s archivé", updated.Ref), nil)
	return updated, nil
}

// Transfer hands responsibility to another user. Only the current
// responsible user may transfer; the hand-off is written to the ledger.
func (w *Workflow) Transfer(ctx context.Context, courrierID id.CourrierID, toUserID id.UserID, reason string) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := w.users.GetUser(ctx, toUserID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "transfer target does not exist")
		}
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot transfer a courrier to yourself")
	}

	var statusBefore models.Status
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error {
			if err := c.EnsureMutable(); err != nil {
				return err
			}
			if !c.IsResponsible(actor.ID) {
				return w.denied("transfer", "only the current responsible user may transfer")
			}
			statusBefore = c.Status
			return nil
		},
		func(c *models.Courrier) { c.SetResponsible(target.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}

	entry, err := w.ledger.Record(ctx, courrierID, actor.ID, target.ID, statusBefore, reason)
	if err != nil {
		return nil, err
	}
	if updated.Status != statusBefore {
		if err := w.ledger.Complete(ctx, entry.ID, updated.Status); err != nil {
			return nil, err
		}
	}

	w.observeTransition(ctx, "transfer", time.Now(), updated, actor)
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s vous a été transféré par %s", updated.Ref, actor.DisplayName()), &target.ID)
	return updated, nil
}

// TakeOver claims responsibility for an item. Allowed for ADMIN, DIRECTOR
// and holders of a SHARE grant; the hand-off is written to the ledger.
func (w *Workflow) TakeOver(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Elevated() {
		shared, err := w.engine.HasAccess(ctx, c, actor, access.LevelShare)
		if err != nil {
			return nil, err
		}
		if !shared {
			return nil, w.denied("take_over", "taking over requires a share grant or an elevated role")
		}
	}

	var (
		statusBefore models.Status
		previous     id.UserID
	)
	now := requestcontext.Now(ctx)
	updated, err := w.store.Execute(ctx, courrierID,
		func(c *models.Courrier) error {
			if err := c.EnsureMutable(); err != nil {
				return err
			}
			if c.IsResponsible(actor.ID) {
				return dErrors.New(dErrors.CodeConflict, "already responsible for this courrier")
			}
			statusBefore = c.Status
			previous = c.CreatedBy
			if c.ResponsibleUserID != nil {
				previous = *c.ResponsibleUserID
			}
			return nil
		},
		func(c *models.Courrier) { c.SetResponsible(actor.ID, now) },
	)
	if err != nil {
		return nil, w.transitionErr(err)
	}

	if _, err := w.ledger.Record(ctx, courrierID, previous, actor.ID, statusBefore, "prise en charge"); err != nil {
		return nil, err
	}

	w.observeTransition(ctx, "take_over", time.Now(), updated, actor)
	w.notify(ctx, updated.ID, notification.LevelInfo,
		fmt.Sprintf("Courrier %s pris en charge par %s", updated.Ref, actor.DisplayName()), nil)
	return updated, nil
}

// requireStaff blocks the visitor role from every mutating operation.
func requireStaff(actor identity.User) error {
	if actor.Role == identity.RoleVisitor {
		return dErrors.New(dErrors.CodeForbidden, "visitors may only consult public verification")
	}
	return nil
}

func (w *Workflow) observeTransition(ctx context.Context, action string, start time.Time, c *models.Courrier, actor identity.User) {
	if w.metrics != nil {
		w.metrics.IncrementTransition(action)
		w.metrics.ObserveTransition(start)
	}
	w.logger.InfoContext(ctx, "workflow transition",
		"action", action, "courrier_id", c.ID, "ref", c.Ref, "status", c.Status, "actor_id", actor.ID)
}

// transitionErr maps store failures, passing coded domain errors through.
func (w *Workflow) transitionErr(err error) error {
	if _, ok := dErrors.AsDomain(err); ok {
		return err
	}
	return w.translateStoreErr(err)
}

// notify appends a workflow notice. Feed failures are logged, never
// propagated: the transition already committed.
func (w *Workflow) notify(ctx context.Context, courrierID id.CourrierID, level notification.Level, message string, target *id.UserID) {
	if err := w.notifier.Emit(ctx, courrierID, level, message, target); err != nil {
		w.logger.WarnContext(ctx, "notification emit failed", "courrier_id", courrierID, "error", err)
	}
}
