package codec

import (
	"errors"
)

// ErrEmptyInput is returned when an empty string is passed to Encode.
var ErrEmptyInput = errors.New("codec: empty input")

// Strategy is one reversible token framing. Decode reports ok=false when the
// input was not produced by this scheme.
type Strategy interface {
	Name() string
	Encode(raw string) (string, error)
	Decode(opaque string) (string, bool)
}

// Codec turns a raw token string into an opaque URL-embeddable string and
// back. Decoding walks an ordered strategy list and takes the first success,
// so tokens issued before a scheme migration stay readable. Adding a future
// scheme means appending a strategy here.
type Codec struct {
	strategies []Strategy
}

// New creates a codec keyed by the application token secret. The AEAD scheme
// is the current encode target; the legacy reverse-and-frame scheme is kept
// for decode compatibility.
func New(secret string) *Codec {
	return &Codec{
		strategies: []Strategy{
			newAEADScheme(secret),
			legacyScheme{},
		},
	}
}

// Encode produces an opaque string under the current scheme. If the current
// scheme fails for an internal reason, the legacy framing is used instead so
// a non-empty input always encodes.
func (c *Codec) Encode(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyInput
	}
	opaque, err := c.strategies[0].Encode(raw)
	if err != nil {
		return c.strategies[1].Encode(raw)
	}
	return opaque, nil
}

// Decode tries each scheme in order and returns the first raw value
// recovered. ok is false when no scheme accepts the input; the caller decides
// whether to fall back to treating the input as already raw.
func (c *Codec) Decode(opaque string) (string, bool) {
	if opaque == "" {
		return "", false
	}
	for _, s := range c.strategies {
		if raw, ok := s.Decode(opaque); ok && raw != "" {
			return raw, true
		}
	}
	return "", false
}
