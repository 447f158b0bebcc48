// Package transfer keeps the append-only responsibility ledger: one entry per
// hand-off of a courrier between users, with the status observed before and
// after the hand-off. Entries are never mutated or deleted.
package transfer

import (
	"time"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
)

// Transfer is one recorded hand-off.
type Transfer struct {
	ID         id.TransferID `json:"id"`
	CourrierID id.CourrierID `json:"courrier_id"`
	FromUserID id.UserID     `json:"from_user_id"`
	ToUserID   id.UserID     `json:"to_user_id"`
	Date       time.Time     `json:"date"`
	// StatusBefore snapshots the courrier's status at recording time.
	StatusBefore models.Status `json:"status_before"`
	// StatusAfter is filled in by Complete once the status-changing side
	// effect lands; stays nil when the transfer itself changes no status.
	StatusAfter *models.Status `json:"status_after,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

func (t *Transfer) clone() *Transfer {
	out := *t
	if t.StatusAfter != nil {
		v := *t.StatusAfter
		out.StatusAfter = &v
	}
	return &out
}
