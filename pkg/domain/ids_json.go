package domain

import "github.com/google/uuid"

// Text marshaling keeps typed IDs rendering as canonical UUID strings in JSON
// payloads instead of raw byte arrays.

func (id UserID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }
func (id *UserID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }

func (id CourrierID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }
func (id *CourrierID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }

func (id TransferID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }
func (id *TransferID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }

func (id GrantID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }
func (id *GrantID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }

func (id NotificationID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}
func (id *NotificationID) UnmarshalText(b []byte) error { return unmarshalInto((*uuid.UUID)(id), b) }

func unmarshalInto(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}
