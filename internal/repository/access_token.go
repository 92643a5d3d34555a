package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carevault/access-server-go/internal/database"
	"github.com/carevault/access-server-go/internal/model"
)

// AccessTokenRepository handles access token data operations. Tokens are
// never deleted; superseded or overdue rows are demoted to expired and kept
// for the audit trail.
type AccessTokenRepository interface {
	Create(ctx context.Context, params model.CreateAccessTokenParams) (*model.AccessToken, error)
	FindActiveByPatientID(ctx context.Context, patientID string) (*model.AccessToken, error)
	// FindActiveByToken matches status=active only and applies no time
	// predicate: expiry is the caller's check, so a stale row can be healed.
	FindActiveByToken(ctx context.Context, token string) (*model.AccessToken, error)
	MarkExpired(ctx context.Context, id string) error
	ExpireAllForPatient(ctx context.Context, patientID string) (int64, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccessTokenRepository
}

// tokenDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type tokenDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type accessTokenRepo struct {
	db tokenDB
}

func NewAccessTokenRepository(db *sqlx.DB) AccessTokenRepository {
	return &accessTokenRepo{db: db}
}

func (r *accessTokenRepo) WithTx(tx *sqlx.Tx) AccessTokenRepository {
	return &accessTokenRepo{db: tx}
}

func (r *accessTokenRepo) Create(ctx context.Context, params model.CreateAccessTokenParams) (*model.AccessToken, error) {
	var token model.AccessToken
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &token, `
			INSERT INTO access_tokens (patient_id, token, status, expires_at, created_by)
			VALUES ($1, $2, 'active', $3, $4)
			RETURNING *
		`, params.PatientID, params.Token, params.ExpiresAt, params.CreatedBy)
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *accessTokenRepo) FindActiveByPatientID(ctx context.Context, patientID string) (*model.AccessToken, error) {
	var token model.AccessToken
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &token, `
			SELECT * FROM access_tokens
			WHERE patient_id = $1 AND status = 'active'
			ORDER BY created_at DESC
			LIMIT 1
		`, patientID)
	})
	return HandleNotFound(&token, err)
}

func (r *accessTokenRepo) FindActiveByToken(ctx context.Context, token string) (*model.AccessToken, error) {
	var t model.AccessToken
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &t, `
			SELECT * FROM access_tokens
			WHERE token = $1 AND status = 'active'
		`, token)
	})
	return HandleNotFound(&t, err)
}

func (r *accessTokenRepo) MarkExpired(ctx context.Context, id string) error {
	return database.Call(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE access_tokens
			SET status = 'expired'
			WHERE id = $1 AND status = 'active'
		`, id)
		return err
	})
}

func (r *accessTokenRepo) ExpireAllForPatient(ctx context.Context, patientID string) (int64, error) {
	var count int64
	err := database.Call(ctx, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `
			UPDATE access_tokens
			SET status = 'expired'
			WHERE patient_id = $1 AND status = 'active'
		`, patientID)
		if err != nil {
			return err
		}
		count, err = result.RowsAffected()
		return err
	})
	return count, err
}

func (r *accessTokenRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := database.Call(ctx, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `
			UPDATE access_tokens
			SET status = 'expired'
			WHERE status = 'active' AND expires_at < $1
		`, now)
		if err != nil {
			return err
		}
		count, err = result.RowsAffected()
		return err
	})
	return count, err
}
