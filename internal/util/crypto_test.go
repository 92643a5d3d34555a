package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("has timestamp and random segments", func(t *testing.T) {
		token, err := NewRawToken(now)
		require.NoError(t, err)

		parts := strings.SplitN(token, ".", 2)
		require.Len(t, parts, 2)
		assert.NotEmpty(t, parts[0])
		assert.Len(t, parts[1], 2*tokenRandomBytes)
	})

	t.Run("same instant yields distinct tokens", func(t *testing.T) {
		a, err := NewRawToken(now)
		require.NoError(t, err)
		b, err := NewRawToken(now)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc123", "abc123"))
	assert.False(t, ConstantTimeEqual("abc123", "abc124"))
	assert.False(t, ConstantTimeEqual("abc123", "abc1234"))
	assert.True(t, ConstantTimeEqual("", ""))
}

func TestMaskToken(t *testing.T) {
	t.Run("keeps only a short prefix", func(t *testing.T) {
		assert.Equal(t, "lx8f****", MaskToken("lx8f3k2a.9f86d081884c7d65"))
	})

	t.Run("short values fully masked", func(t *testing.T) {
		assert.Equal(t, "****", MaskToken("ab"))
		assert.Equal(t, "****", MaskToken("abcd"))
		assert.Equal(t, "****", MaskToken(""))
	})

	t.Run("never leaks the full value", func(t *testing.T) {
		token := "lx8f3k2a.9f86d081884c7d659a2feaa0c55ad015"
		assert.NotContains(t, MaskToken(token), token[4:])
	})
}
