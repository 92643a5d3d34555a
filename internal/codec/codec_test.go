package codec

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-codec-tests-0123456789"

func TestCodec_RoundTrip(t *testing.T) {
	c := New(testSecret)

	t.Run("encode then decode recovers raw value", func(t *testing.T) {
		raw := "lx8f3k2a.9f86d081884c7d659a2feaa0c55ad015"
		opaque, err := c.Encode(raw)
		require.NoError(t, err)
		assert.NotEqual(t, raw, opaque)
		assert.NotContains(t, opaque, raw)

		decoded, ok := c.Decode(opaque)
		require.True(t, ok)
		assert.Equal(t, raw, decoded)
	})

	t.Run("encode is non-deterministic", func(t *testing.T) {
		raw := "some-token-value"
		first, err := c.Encode(raw)
		require.NoError(t, err)
		second, err := c.Encode(raw)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("opaque string is URL safe", func(t *testing.T) {
		opaque, err := c.Encode("token.with.dots")
		require.NoError(t, err)
		assert.False(t, strings.ContainsAny(opaque, "+/="))
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := c.Encode("")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestCodec_LegacyDecode(t *testing.T) {
	c := New(testSecret)

	t.Run("accepts legacy framed values", func(t *testing.T) {
		raw := "lx8f3k2a.9f86d081884c7d659a2feaa0c55ad015"
		opaque, err := legacyScheme{}.Encode(raw)
		require.NoError(t, err)

		decoded, ok := c.Decode(opaque)
		require.True(t, ok)
		assert.Equal(t, raw, decoded)
	})

	t.Run("rejects values shorter than pad overhead", func(t *testing.T) {
		_, ok := legacyScheme{}.Decode(strings.Repeat("a", 2*legacyPadLength))
		assert.False(t, ok)
	})

	t.Run("rejects non-printable payloads", func(t *testing.T) {
		binary := base64.RawURLEncoding.EncodeToString([]byte{0x00, 0x01, 0xff, 0xfe, 0x02})
		opaque := "abcdefgh" + reverse(binary) + "ijklmnop"
		_, ok := legacyScheme{}.Decode(opaque)
		assert.False(t, ok)
	})
}

func TestCodec_Decode_Garbage(t *testing.T) {
	c := New(testSecret)

	t.Run("empty input", func(t *testing.T) {
		_, ok := c.Decode("")
		assert.False(t, ok)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, ok := c.Decode("!!!not-base64-at-all!!!")
		assert.False(t, ok)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		opaque, err := c.Encode("some-token")
		require.NoError(t, err)

		// Flip a character inside the ciphertext
		b := []byte(opaque)
		mid := len(b) / 2
		if b[mid] == 'A' {
			b[mid] = 'B'
		} else {
			b[mid] = 'A'
		}
		_, ok := c.Decode(string(b))
		assert.False(t, ok)
	})

	t.Run("different secret cannot decode", func(t *testing.T) {
		opaque, err := c.Encode("some-token")
		require.NoError(t, err)

		other := New("a-completely-different-secret-value-42")
		_, ok := other.Decode(opaque)
		assert.False(t, ok)
	})
}
