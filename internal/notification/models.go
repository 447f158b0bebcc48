// Package notification appends human-readable, leveled notices produced as
// workflow side effects and serves them newest first to polling consumers.
package notification

import (
	"time"

	id "registre/pkg/domain"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelAlert Level = "ALERT"
)

// Notification is one append-only notice tied to a courrier and optionally
// targeted at a single user (nil target = broadcast).
type Notification struct {
	ID           id.NotificationID `json:"id"`
	Message      string            `json:"message"`
	Level        Level             `json:"level"`
	CourrierID   id.CourrierID     `json:"courrier_id"`
	Date         time.Time         `json:"date"`
	TargetUserID *id.UserID        `json:"target_user_id,omitempty"`
}

// VisibleTo reports whether the notice belongs in a user's feed.
func (n Notification) VisibleTo(userID id.UserID) bool {
	return n.TargetUserID == nil || *n.TargetUserID == userID
}
