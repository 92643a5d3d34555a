package codec

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"unicode/utf8"
)

const (
	legacyPadChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	legacyPadLength = 8
)

// legacyScheme is the pre-migration obfuscation: the raw value is URL-safe
// base64 encoded, the result reversed, and a fixed-length random pad glued on
// each side. Still accepted on decode so old QR codes keep working.
type legacyScheme struct{}

func (legacyScheme) Name() string {
	return "legacy"
}

func (legacyScheme) Encode(raw string) (string, error) {
	prefix, err := randomPad(legacyPadLength)
	if err != nil {
		return "", err
	}
	suffix, err := randomPad(legacyPadLength)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return prefix + reverse(encoded) + suffix, nil
}

func (legacyScheme) Decode(opaque string) (string, bool) {
	// Inputs shorter than the fixed pad overhead are malformed for this path.
	if len(opaque) <= 2*legacyPadLength {
		return "", false
	}
	core := opaque[legacyPadLength : len(opaque)-legacyPadLength]
	decoded, err := base64.RawURLEncoding.DecodeString(reverse(core))
	if err != nil {
		return "", false
	}
	if !printable(decoded) {
		return "", false
	}
	return string(decoded), true
}

func randomPad(n int) (string, error) {
	pad := make([]byte, n)
	max := big.NewInt(int64(len(legacyPadChars)))
	for i := range pad {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pad: %w", err)
		}
		pad[i] = legacyPadChars[idx.Int64()]
	}
	return string(pad), nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// printable guards against base64-decodable garbage: raw token values are
// always printable ASCII.
func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
