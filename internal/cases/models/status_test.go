package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "watchdesk/pkg/domain-errors"
)

func TestParseStatusRoundTrip(t *testing.T) {
	for _, label := range []string{"Select Status", "Pending", "Flag:1", "Flag:2", "Flag:3", "Flag:4", "Flag:5"} {
		t.Run(label, func(t *testing.T) {
			s, err := ParseStatus(label)
			require.NoError(t, err)
			assert.Equal(t, label, s.String())
		})
	}
}

func TestParseStatusRejects(t *testing.T) {
	for _, label := range []string{"", "pending", "Flag:0", "Flag:6", "Flag:", "Flag:03", "Flag:+3", "Flag:-1", "Cleared", "Flag: 3"} {
		t.Run(label, func(t *testing.T) {
			_, err := ParseStatus(label)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatus))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	flag3, err := Flagged(3)
	require.NoError(t, err)

	assert.False(t, Unset().IsQueued())
	assert.True(t, Pending().IsQueued())
	assert.True(t, flag3.IsQueued())
	assert.Equal(t, 3, flag3.FlagLevel())
	assert.Equal(t, 0, Pending().FlagLevel())
	assert.Equal(t, Unset(), Status{}, "zero value is Unset")

	_, err = Flagged(6)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatus))
}

func TestStatusJSON(t *testing.T) {
	flag5, _ := Flagged(5)
	raw, err := json.Marshal(map[string]Status{"status": flag5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Flag:5"}`, string(raw))

	var out struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Pending"}`), &out))
	assert.True(t, out.Status.IsPending())

	err = json.Unmarshal([]byte(`{"status":"Flag:9"}`), &out)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatus))

	err = json.Unmarshal([]byte(`{"status":3}`), &out)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatus))
}
