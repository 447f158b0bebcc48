package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "registre/pkg/domain-errors"
)

func TestParseIDs_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCourrierID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts a canonical UUID", func(t *testing.T) {
		raw := uuid.NewString()
		parsed, err := ParseUserID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
	})

	t.Run("normalizes uppercase input", func(t *testing.T) {
		raw := strings.ToUpper(uuid.NewString())
		parsed, err := ParseTransferID(raw)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(raw), parsed.String())
	})
}

func TestIDs_Generation(t *testing.T) {
	t.Run("new ids are distinct and non-nil", func(t *testing.T) {
		a, b := NewCourrierID(), NewCourrierID()
		assert.False(t, a.IsNil())
		assert.False(t, b.IsNil())
		assert.NotEqual(t, a, b)
	})

	t.Run("zero value is nil", func(t *testing.T) {
		var zero UserID
		assert.True(t, zero.IsNil())
	})
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	courrierID := NewCourrierID()
	raw, err := json.Marshal(courrierID)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+courrierID.String()+`"`, string(raw))

	var decoded CourrierID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, courrierID, decoded)
}
