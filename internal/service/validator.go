package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/audit"
	"github.com/carevault/access-server-go/internal/codec"
	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/util"
)

// ValidationReason classifies a failed validation for the audit trail. The
// caller-facing message never distinguishes these: a scanner probing for
// differences between "malformed" and "expired" learns nothing.
type ValidationReason string

const (
	ReasonNotFound  ValidationReason = "not_found"
	ReasonExpired   ValidationReason = "expired"
	ReasonCorrupted ValidationReason = "corrupted"
)

// ValidationResult is a value, not an error: an invalid token is an expected
// business outcome.
type ValidationResult struct {
	Valid     bool
	PatientID string
	TokenID   string
	Reason    ValidationReason
}

// Validator is the single chokepoint every inbound opaque token passes
// through before any patient data is disclosed. It holds no state of its own.
type Validator struct {
	tokens repository.AccessTokenRepository
	codec  *codec.Codec
	aud    *audit.Writer
	now    func() time.Time
}

func NewValidator(tokens repository.AccessTokenRepository, cdc *codec.Codec, aud *audit.Writer) *Validator {
	return &Validator{
		tokens: tokens,
		codec:  cdc,
		aud:    aud,
		now:    time.Now,
	}
}

// Validate decodes the inbound opaque string (current scheme, then legacy,
// then raw passthrough), looks the candidate up in the store, and lazily
// demotes a matching row whose expiry has passed. Exactly one audit entry is
// written per call, success or failure, with the input redacted.
func (v *Validator) Validate(ctx context.Context, input string, origin model.AccessOrigin) (ValidationResult, error) {
	cleaned := extractTokenSegment(strings.TrimSpace(input))

	decoded, decodedOK := v.codec.Decode(cleaned)
	candidates := make([]string, 0, 2)
	if decodedOK {
		candidates = append(candidates, decoded)
	}
	// Some legitimate historical tokens were never encoded at all.
	if cleaned != "" {
		candidates = append(candidates, cleaned)
	}

	var found *model.AccessToken
	for _, candidate := range candidates {
		token, err := v.tokens.FindActiveByToken(ctx, candidate)
		if err != nil {
			return ValidationResult{}, apperrors.Database(err)
		}
		if token != nil {
			found = token
			break
		}
	}

	result := v.classify(ctx, found, decodedOK)
	v.auditAttempt(ctx, origin, cleaned, result)
	return result, nil
}

func (v *Validator) classify(ctx context.Context, found *model.AccessToken, decodedOK bool) ValidationResult {
	if found == nil {
		reason := ReasonNotFound
		if !decodedOK {
			reason = ReasonCorrupted
		}
		return ValidationResult{Reason: reason}
	}

	if found.IsExpired(v.now()) {
		// Self-healing lazy expiry: demote the stale row before reporting
		// invalid.
		if err := v.tokens.MarkExpired(ctx, found.ID); err != nil {
			log.Error().Err(err).Str("tokenId", found.ID).Msg("demote expired token")
		}
		return ValidationResult{PatientID: found.PatientID, Reason: ReasonExpired}
	}

	return ValidationResult{
		Valid:     true,
		PatientID: found.PatientID,
		TokenID:   found.ID,
	}
}

func (v *Validator) auditAttempt(ctx context.Context, origin model.AccessOrigin, input string, result ValidationResult) {
	patientID := result.PatientID
	if patientID == "" {
		patientID = audit.UnknownPatientID
	}

	action := audit.ActionScanAttempt
	if origin == model.OriginManualEntry {
		action = audit.ActionAccessKeyAttempt
	}

	details := map[string]any{
		"input": util.MaskToken(input),
		"valid": result.Valid,
	}
	if !result.Valid {
		details["reason"] = string(result.Reason)
	}

	v.aud.Record(ctx, audit.Entry{
		Action:    action,
		PatientID: patientID,
		Origin:    origin,
		Details:   details,
	})
}

// extractTokenSegment pulls the bare token out of a scanned share URL of the
// form .../qr/<token>; anything else passes through unchanged.
func extractTokenSegment(input string) string {
	if idx := strings.LastIndex(input, "/qr/"); idx >= 0 {
		segment := input[idx+len("/qr/"):]
		if end := strings.IndexAny(segment, "/?#"); end >= 0 {
			segment = segment[:end]
		}
		return segment
	}
	return input
}
