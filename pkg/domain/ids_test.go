package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "watchdesk/pkg/domain-errors"
)

// TestParseUserID covers the "valid, non-empty, non-nil UUID" rule for ids
// coming from token claims and path parameters.
func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
		assert.False(t, id.IsNil())
	})
}

func TestParseUserID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseHistoryID_MatchesUserIDRules(t *testing.T) {
	for _, input := range []string{"", "invalid", uuid.Nil.String(), uuid.NewString()} {
		_, errUser := ParseUserID(input)
		_, errHistory := ParseHistoryID(input)
		assert.Equal(t, errUser == nil, errHistory == nil, "input %q", input)
	}
	assert.False(t, NewHistoryID().IsNil())
}

func TestParseEntityID(t *testing.T) {
	t.Run("trims and accepts dataset ids", func(t *testing.T) {
		id, err := ParseEntityID("  NK-abc123  ")
		require.NoError(t, err)
		assert.Equal(t, EntityID("NK-abc123"), id)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseEntityID("   ")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidInput, "entity ID cannot be empty"))
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := ParseEntityID(strings.Repeat("x", MaxEntityIDLength+1))
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidInput, "entity ID is too long"))
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParseEntityID("E1\x00E2")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidInput, "entity ID contains control characters"))
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty"))

	_, err = ParseRole("admin")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidInput, "invalid role"))
}

func TestUserIDJSON(t *testing.T) {
	u := UserID(uuid.MustParse("7b1d3c55-2a3e-4c8f-9a61-0f2f0d9c1e11"))

	raw, err := json.Marshal(struct {
		ID UserID `json:"id"`
	}{u})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7b1d3c55-2a3e-4c8f-9a61-0f2f0d9c1e11"}`, string(raw))

	var back struct {
		ID UserID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, u, back.ID)
}
