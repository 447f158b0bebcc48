// Package access centralizes per-item authorization: every screen-level
// "may this user do that" question routes through the one engine here instead
// of being re-derived ad hoc per caller.
package access

import (
	"time"

	id "registre/pkg/domain"
)

// Level is a per-item capability. WRITE dominates READ; SHARE is an
// independent axis (it lets a user take over or re-share an item but does
// not by itself imply WRITE).
type Level string

const (
	LevelRead  Level = "READ"
	LevelWrite Level = "WRITE"
	LevelShare Level = "SHARE"
)

func (l Level) Valid() bool {
	return l == LevelRead || l == LevelWrite || l == LevelShare
}

// Satisfies reports whether a granted level fulfils a required one.
func (l Level) Satisfies(required Level) bool {
	if required == LevelShare {
		return l == LevelShare
	}
	if l == LevelShare {
		return false
	}
	if required == LevelRead {
		return l == LevelRead || l == LevelWrite
	}
	return l == LevelWrite
}

// Grant is one explicit permission record. At most one grant exists per
// (courrier, user) pair; a new grant replaces the prior one.
type Grant struct {
	ID         id.GrantID    `json:"id"`
	CourrierID id.CourrierID `json:"courrier_id"`
	UserID     id.UserID     `json:"user_id"`
	Level      Level         `json:"level"`
	GrantedBy  id.UserID     `json:"granted_by"`
	GrantedAt  time.Time     `json:"granted_at"`
}
