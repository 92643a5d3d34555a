package util

import (
	"github.com/google/uuid"
)

// IsValidUUID reports whether s is a canonical UUID string. Session and
// patient identifiers arriving in URL paths are checked here before any
// store lookup.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsValidEnum reports whether value is one of validValues. The empty string
// is accepted so optional fields can fall back to their default.
func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
