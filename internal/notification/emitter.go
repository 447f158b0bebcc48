package notification

import (
	"context"
	"log/slog"

	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/requestcontext"
)

// Emitter records workflow notices and optionally mirrors them to an
// external bus. Mirroring is best effort: a full mirror channel never
// blocks or fails the workflow operation that produced the notice.
type Emitter struct {
	store  Store
	mirror chan<- Notification
	logger *slog.Logger
}

type EmitterOption func(*Emitter)

func WithMirror(ch chan<- Notification) EmitterOption {
	return func(e *Emitter) { e.mirror = ch }
}

func WithLogger(logger *slog.Logger) EmitterOption {
	return func(e *Emitter) { e.logger = logger }
}

func NewEmitter(store Store, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit appends a notice to the feed. A nil target broadcasts to everyone.
func (e *Emitter) Emit(ctx context.Context, courrierID id.CourrierID, level Level, message string, target *id.UserID) error {
	if message == "" {
		return dErrors.New(dErrors.CodeValidation, "notification message is required")
	}
	n := Notification{
		ID:           id.NewNotificationID(),
		Message:      message,
		Level:        level,
		CourrierID:   courrierID,
		Date:         requestcontext.Now(ctx),
		TargetUserID: target,
	}
	if err := e.store.Append(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append notification")
	}
	if e.mirror != nil {
		select {
		case e.mirror <- n:
		default:
			e.logger.WarnContext(ctx, "notification mirror channel full, dropping",
				slog.String("courrier_id", courrierID.String()))
		}
	}
	return nil
}
