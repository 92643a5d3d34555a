package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

const tokenRandomBytes = 16

// NewRawToken builds an unguessable token value from the issue instant plus a
// random component, globally unique with overwhelming probability.
func NewRawToken(now time.Time) (string, error) {
	random := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	return strconv.FormatInt(now.UnixNano(), 36) + "." + hex.EncodeToString(random), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MaskToken redacts a token value for logging. Full raw tokens must never
// appear in any log or audit detail field.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
