package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/audit"
	"github.com/carevault/access-server-go/internal/codec"
	"github.com/carevault/access-server-go/internal/database"
	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/util"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// IssuedToken is the result of a token issue call: the persisted record plus
// its encoded opaque form for embedding in a QR payload or access-key text.
type IssuedToken struct {
	Token  *model.AccessToken
	Opaque string
	Reused bool
}

// TokenService owns issuance and revocation of patient access tokens.
type TokenService struct {
	db     TxRunner
	tokens repository.AccessTokenRepository
	codec  *codec.Codec
	aud    *audit.Writer
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(
	db TxRunner,
	tokens repository.AccessTokenRepository,
	cdc *codec.Codec,
	aud *audit.Writer,
	ttl time.Duration,
) *TokenService {
	return &TokenService{
		db:     db,
		tokens: tokens,
		codec:  cdc,
		aud:    aud,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns the patient's active token, creating one only when none
// exists. Repeated calls are deliberately idempotent so "generate my QR" is
// safe to tap twice. A fresh issue demotes every lingering active token for
// the patient inside the same transaction as the insert, keeping at most one
// token active per patient.
func (s *TokenService) Issue(ctx context.Context, patientID, createdBy string) (*IssuedToken, error) {
	existing, err := s.tokens.FindActiveByPatientID(ctx, patientID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil && !existing.IsExpired(s.now()) {
		opaque, err := s.codec.Encode(existing.Token)
		if err != nil {
			return nil, apperrors.Internal("encode access token").WithCause(err)
		}
		s.audit(ctx, audit.ActionTokenReused, patientID, createdBy, existing)
		return &IssuedToken{Token: existing, Opaque: opaque, Reused: true}, nil
	}

	raw, err := util.NewRawToken(s.now())
	if err != nil {
		return nil, apperrors.Internal("generate token value").WithCause(err)
	}

	var created *model.AccessToken
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.tokens.WithTx(tx)
		if _, err := repo.ExpireAllForPatient(ctx, patientID); err != nil {
			return fmt.Errorf("expire previous tokens: %w", err)
		}
		created, err = repo.Create(ctx, model.CreateAccessTokenParams{
			PatientID: patientID,
			Token:     raw,
			ExpiresAt: s.now().Add(s.ttl),
			CreatedBy: createdBy,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	opaque, err := s.codec.Encode(created.Token)
	if err != nil {
		return nil, apperrors.Internal("encode access token").WithCause(err)
	}

	log.Info().
		Str("patientId", patientID).
		Time("expiresAt", created.ExpiresAt).
		Msg("access token issued")
	s.audit(ctx, audit.ActionTokenGenerated, patientID, createdBy, created)

	return &IssuedToken{Token: created, Opaque: opaque}, nil
}

// RevokeAllForPatient marks every active token for the patient expired.
func (s *TokenService) RevokeAllForPatient(ctx context.Context, patientID, revokedBy string) (int64, error) {
	count, err := s.tokens.ExpireAllForPatient(ctx, patientID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if count > 0 {
		entry := audit.Entry{
			Action:    audit.ActionTokenRevoked,
			PatientID: patientID,
			Origin:    model.OriginSystem,
			Details:   map[string]any{"revoked": count},
		}
		if revokedBy != patientID {
			entry.AdminID = revokedBy
		}
		s.aud.Record(ctx, entry)
	}
	return count, nil
}

func (s *TokenService) audit(ctx context.Context, action, patientID, createdBy string, token *model.AccessToken) {
	entry := audit.Entry{
		Action:    action,
		PatientID: patientID,
		Origin:    model.OriginSystem,
		Details: map[string]any{
			"token":     util.MaskToken(token.Token),
			"expiresAt": token.ExpiresAt.Format(time.RFC3339),
		},
	}
	if createdBy != patientID {
		entry.AdminID = createdBy
	}
	s.aud.Record(ctx, entry)
}
