// Package domain holds typed identifiers shared across modules.
//
// Wrapping uuid.UUID in distinct named types makes cross-entity assignment a
// compile error: a CourrierID can never be passed where a UserID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "registre/pkg/domain-errors"
)

type (
	// UserID identifies a provisioned agent, director, receptionist or admin.
	UserID uuid.UUID

	// CourrierID identifies a correspondence record.
	CourrierID uuid.UUID

	// TransferID identifies one entry in the responsibility ledger.
	TransferID uuid.UUID

	// GrantID identifies an access grant.
	GrantID uuid.UUID

	// NotificationID identifies an emitted notification.
	NotificationID uuid.UUID
)

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewCourrierID returns a fresh random CourrierID.
func NewCourrierID() CourrierID { return CourrierID(uuid.New()) }

// NewTransferID returns a fresh random TransferID.
func NewTransferID() TransferID { return TransferID(uuid.New()) }

// NewGrantID returns a fresh random GrantID.
func NewGrantID() GrantID { return GrantID(uuid.New()) }

// NewNotificationID returns a fresh random NotificationID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id CourrierID) String() string     { return uuid.UUID(id).String() }
func (id TransferID) String() string     { return uuid.UUID(id).String() }
func (id GrantID) String() string        { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CourrierID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TransferID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses and validates a user ID string.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseCourrierID parses and validates a courrier ID string.
func ParseCourrierID(s string) (CourrierID, error) {
	u, err := parseUUID(s, "courrier id")
	return CourrierID(u), err
}

// ParseTransferID parses and validates a transfer ID string.
func ParseTransferID(s string) (TransferID, error) {
	u, err := parseUUID(s, "transfer id")
	return TransferID(u), err
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Validation happens once, at the trust boundary.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be nil")
	}
	return u, nil
}
