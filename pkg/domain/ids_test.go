package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dojotrack/pkg/domain-errors"
)

// IDs must be valid, non-empty, non-nil UUIDs. Parsing happens at trust
// boundaries, so the failure mode is always a bad-request code.
func TestParseUserID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	identityID := IdentityID(uuid.New())

	// These would fail to compile if the types were interchangeable:
	// var _ UserID = identityID   // compile error
	// var _ IdentityID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(identityID))
}
