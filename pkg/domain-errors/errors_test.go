package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesCodeAndMessage(t *testing.T) {
	err := New(CodeNotFound, "case not found")
	require.ErrorIs(t, err, New(CodeNotFound, "case not found"))
	assert.NotErrorIs(t, err, New(CodeNotFound, "other"))
	assert.NotErrorIs(t, err, New(CodeForbidden, "case not found"))
}

func TestHasCodeWalksWrappedChain(t *testing.T) {
	base := New(CodeDuplicateCase, "case already exists")
	wrapped := Wrap(base, CodeInternal, "create failed")
	outer := fmt.Errorf("handler: %w", wrapped)

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeDuplicateCase))
	assert.False(t, HasCode(outer, CodeForbidden))
	assert.Equal(t, CodeInternal, CodeOf(outer))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Empty(t, Message(errors.New("boom")))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}
