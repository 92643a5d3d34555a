package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/audit"
	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/util"
)

// EmergencyGrant is the ephemeral result of a public emergency scan. Nothing
// is persisted for it: expiry is enforced by the client comparing ExpiresAt
// to wall clock on each read, an accepted risk for the reduced emergency-info
// view only.
type EmergencyGrant struct {
	AccessGranted bool      `json:"accessGranted"`
	PatientID     string    `json:"userId"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// EmergencyService validates a publicly scanned token and hands out a
// short-lived anonymous grant. It must only run behind the trust boundary:
// the token secret never reaches the client.
type EmergencyService struct {
	tokens repository.AccessTokenRepository
	aud    *audit.Writer
	ttl    time.Duration
	now    func() time.Time
}

func NewEmergencyService(tokens repository.AccessTokenRepository, aud *audit.Writer, ttl time.Duration) *EmergencyService {
	return &EmergencyService{
		tokens: tokens,
		aud:    aud,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Grant looks up an active token by exact raw value. Unlike the doctor-scan
// validator there is deliberately no decode chain here: the public caller
// decodes client-side before calling, and this asymmetry is preserved as
// found (pre-migration legacy tokens fail this path while passing the doctor
// flow).
func (s *EmergencyService) Grant(ctx context.Context, rawToken string) (*EmergencyGrant, error) {
	token, err := s.tokens.FindActiveByToken(ctx, rawToken)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	// The response never distinguishes missing from expired, but the audit
	// trail attributes the patient whenever a row was found.
	deniedPatientID := audit.UnknownPatientID
	if token != nil && token.IsExpired(s.now()) {
		deniedPatientID = token.PatientID
		if err := s.tokens.MarkExpired(ctx, token.ID); err != nil {
			log.Error().Err(err).Str("tokenId", token.ID).Msg("demote expired token")
		}
		token = nil
	}

	if token == nil {
		s.aud.Record(ctx, audit.Entry{
			Action:    audit.ActionPublicAccess,
			PatientID: deniedPatientID,
			Origin:    model.OriginPublicLink,
			Details: map[string]any{
				"input":  util.MaskToken(rawToken),
				"result": "denied",
			},
		})
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "Invalid or expired access code")
	}

	grant := &EmergencyGrant{
		AccessGranted: true,
		PatientID:     token.PatientID,
		ExpiresAt:     s.now().Add(s.ttl),
	}

	s.aud.Record(ctx, audit.Entry{
		Action:    audit.ActionPublicAccess,
		PatientID: token.PatientID,
		Origin:    model.OriginPublicLink,
		Details: map[string]any{
			"input":     util.MaskToken(rawToken),
			"result":    "granted",
			"expiresAt": grant.ExpiresAt.Format(time.RFC3339),
		},
	})

	return grant, nil
}
