// Package service implements the correspondence workflow: registration,
// stage transitions, responsibility hand-offs and the public verification
// lookup. Every operation resolves the acting user from the request context,
// authorizes through the access engine, and applies status changes inside
// the store's Execute critical section.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"registre/internal/access"
	"registre/internal/courrier/metrics"
	"registre/internal/courrier/models"
	"registre/internal/courrier/store"
	"registre/internal/identity"
	"registre/internal/notification"
	"registre/internal/transfer"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/platform/sentinel"
	"registre/pkg/requestcontext"
)

// Directory resolves acting users. Roles are re-read on every operation so a
// role change takes effect without re-issuing tokens.
type Directory interface {
	GetUser(ctx context.Context, userID id.UserID) (identity.User, error)
}

// Workflow is the single entry point for all courrier mutations.
type Workflow struct {
	store    store.Store
	users    Directory
	engine   *access.Engine
	ledger   *transfer.Ledger
	notifier *notification.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func NewWorkflow(st store.Store, users Directory, engine *access.Engine, ledger *transfer.Ledger, notifier *notification.Emitter, opts ...Option) *Workflow {
	w := &Workflow{
		store:    st,
		users:    users,
		engine:   engine,
		ledger:   ledger,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// actor resolves the authenticated user behind ctx.
func (w *Workflow) actor(ctx context.Context) (identity.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return identity.User{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	user, err := w.users.GetUser(ctx, userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return identity.User{}, dErrors.New(dErrors.CodeUnauthorized, "unknown user")
		}
		return identity.User{}, err
	}
	return user, nil
}

// Get returns a record to a user holding at least READ access.
func (w *Workflow) Get(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	ok, err := w.engine.HasAccess(ctx, c, actor, access.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.denied("get", "no read access to this courrier")
	}
	return c, nil
}

// List returns the records visible to the actor. ADMIN and DIRECTOR see the
// whole registry; everyone else sees items they created, own or were granted.
func (w *Workflow) List(ctx context.Context, filter store.Filter) ([]*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	all, err := w.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list courriers")
	}
	if actor.Role.Elevated() {
		return all, nil
	}
	visible := make([]*models.Courrier, 0, len(all))
	for _, c := range all {
		ok, err := w.engine.HasAccess(ctx, c, actor, access.LevelRead)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// UpdateDetails merges non-workflow fields. Requires WRITE access; fails on
// archived items.
func (w *Workflow) UpdateDetails(ctx context.Context, courrierID id.CourrierID, patch store.DetailsPatch) (*models.Courrier, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	ok, err := w.engine.HasAccess(ctx, c, actor, access.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.denied("update", "no write access to this courrier")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown priority")
	}
	updated, err := w.store.UpdateDetails(ctx, courrierID, patch, requestcontext.Now(ctx))
	if err != nil {
		return nil, w.translateStoreErr(err)
	}
	return updated, nil
}

// History returns the responsibility hand-off log, most recent first.
func (w *Workflow) History(ctx context.Context, courrierID id.CourrierID) ([]*transfer.Transfer, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	ok, err := w.engine.HasAccess(ctx, c, actor, access.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.denied("history", "no read access to this courrier")
	}
	return w.ledger.HistoryDesc(ctx, courrierID)
}

// Participants returns everyone involved with an item.
func (w *Workflow) Participants(ctx context.Context, courrierID id.CourrierID) ([]identity.User, error) {
	actor, err := w.actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.find(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	ok, err := w.engine.HasAccess(ctx, c, actor, access.LevelRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.denied("participants", "no read access to this courrier")
	}
	return w.engine.Participants(ctx, c)
}

// Verify is the unauthenticated QR-scan lookup: it resolves a record by id
// or ref and returns only the redacted public view.
func (w *Workflow) Verify(ctx context.Context, rawID, ref string) (*models.PublicView, error) {
	start := time.Now()
	defer func() {
		if w.metrics != nil {
			w.metrics.ObserveVerify(start)
		}
	}()

	var (
		c   *models.Courrier
		err error
	)
	switch {
	case rawID != "":
		courrierID, parseErr := id.ParseCourrierID(rawID)
		if parseErr != nil {
			return nil, parseErr
		}
		c, err = w.store.FindByID(ctx, courrierID)
	case strings.TrimSpace(ref) != "":
		c, err = w.store.FindByRef(ctx, strings.TrimSpace(ref))
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "id or ref is required")
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no such document")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify document")
	}
	view := c.Redacted()
	return &view, nil
}

func (w *Workflow) find(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	c, err := w.store.FindByID(ctx, courrierID)
	if err != nil {
		return nil, w.translateStoreErr(err)
	}
	return c, nil
}

func (w *Workflow) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "courrier not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "courrier is archived")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "conflicting courrier record")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "courrier store failure")
	}
}

// denied wraps a refused operation, counting it when metrics are wired.
func (w *Workflow) denied(action, message string) error {
	if w.metrics != nil {
		w.metrics.IncrementDenied(action)
	}
	return dErrors.New(dErrors.CodeForbidden, message)
}
