package transfer

import (
	"context"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
	"registre/pkg/requestcontext"
)

// Ledger is the service face of the transfer store.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends a hand-off entry, snapshotting statusBefore at call time.
// The caller completes StatusAfter once its status side effect lands.
func (l *Ledger) Record(ctx context.Context, courrierID id.CourrierID, from, to id.UserID, statusBefore models.Status, reason string) (*Transfer, error) {
	t := &Transfer{
		ID:           id.NewTransferID(),
		CourrierID:   courrierID,
		FromUserID:   from,
		ToUserID:     to,
		Date:         requestcontext.Now(ctx),
		StatusBefore: statusBefore,
		Reason:       reason,
	}
	if err := l.store.Append(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transfer")
	}
	return t, nil
}

// Complete fills in the status the courrier reached after the hand-off.
func (l *Ledger) Complete(ctx context.Context, transferID id.TransferID, statusAfter models.Status) error {
	if err := l.store.SetStatusAfter(ctx, transferID, statusAfter); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete transfer")
	}
	return nil
}

// History returns the canonical chronological (ascending) log.
func (l *Ledger) History(ctx context.Context, courrierID id.CourrierID) ([]*Transfer, error) {
	entries, err := l.store.ListByCourrier(ctx, courrierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer history")
	}
	return entries, nil
}

// HistoryDesc is the "most recent first" presentation ordering, layered on
// top of the canonical ascending log.
func (l *Ledger) HistoryDesc(ctx context.Context, courrierID id.CourrierID) ([]*Transfer, error) {
	entries, err := l.History(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
