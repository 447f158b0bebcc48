// Package adapters bridges the access engine's narrow ports to the concrete
// modules that implement them, keeping the engine free of direct store deps.
package adapters

import (
	"context"

	"registre/internal/access"
	"registre/internal/transfer"
	id "registre/pkg/domain"
)

// LedgerAdapter exposes the transfer store as the engine's TransferLog port.
type LedgerAdapter struct {
	store transfer.Store
}

func NewLedgerAdapter(store transfer.Store) *LedgerAdapter {
	return &LedgerAdapter{store: store}
}

func (a *LedgerAdapter) ListByCourrier(ctx context.Context, courrierID id.CourrierID) ([]access.Handoff, error) {
	entries, err := a.store.ListByCourrier(ctx, courrierID)
	if err != nil {
		return nil, err
	}
	out := make([]access.Handoff, 0, len(entries))
	for _, t := range entries {
		out = append(out, access.Handoff{FromUserID: t.FromUserID, ToUserID: t.ToUserID})
	}
	return out, nil
}
