package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carevault/access-server-go/internal/database"
	"github.com/carevault/access-server-go/internal/model"
)

// DoctorSessionRepository handles doctor session data operations. The
// persisted row is the source of truth for session validity; the manager's
// in-memory cache is only an idle-detection optimization.
type DoctorSessionRepository interface {
	Create(ctx context.Context, params model.CreateDoctorSessionParams) (*model.DoctorSession, error)
	FindByID(ctx context.Context, id string) (*model.DoctorSession, error)
	CountActiveByDoctor(ctx context.Context, doctorID string, now time.Time) (int, error)
	// LockDoctor takes a transaction-scoped advisory lock on the doctor,
	// serializing concurrent session creation. Only meaningful inside WithTx.
	LockDoctor(ctx context.Context, doctorID string) error
	Deactivate(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) DoctorSessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type doctorSessionRepo struct {
	db sessionDB
}

func NewDoctorSessionRepository(db *sqlx.DB) DoctorSessionRepository {
	return &doctorSessionRepo{db: db}
}

func (r *doctorSessionRepo) WithTx(tx *sqlx.Tx) DoctorSessionRepository {
	return &doctorSessionRepo{db: tx}
}

func (r *doctorSessionRepo) LockDoctor(ctx context.Context, doctorID string) error {
	return database.Call(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			SELECT pg_advisory_xact_lock(hashtext($1))
		`, doctorID)
		return err
	})
}

func (r *doctorSessionRepo) Create(ctx context.Context, params model.CreateDoctorSessionParams) (*model.DoctorSession, error) {
	var session model.DoctorSession
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &session, `
			INSERT INTO doctor_sessions (patient_id, doctor_id, token_id, granted_at, expires_at, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			RETURNING *
		`, params.PatientID, params.DoctorID, params.TokenID, params.GrantedAt, params.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *doctorSessionRepo) FindByID(ctx context.Context, id string) (*model.DoctorSession, error) {
	var session model.DoctorSession
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &session, `
			SELECT * FROM doctor_sessions WHERE id = $1
		`, id)
	})
	return HandleNotFound(&session, err)
}

func (r *doctorSessionRepo) CountActiveByDoctor(ctx context.Context, doctorID string, now time.Time) (int, error) {
	var count int
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM doctor_sessions
			WHERE doctor_id = $1 AND is_active = TRUE AND expires_at > $2
		`, doctorID, now)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Deactivate flips is_active off. Safe to call twice; the second call matches
// no rows.
func (r *doctorSessionRepo) Deactivate(ctx context.Context, id string) error {
	return database.Call(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE doctor_sessions
			SET is_active = FALSE
			WHERE id = $1 AND is_active = TRUE
		`, id)
		return err
	})
}

func (r *doctorSessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := database.Call(ctx, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `
			UPDATE doctor_sessions
			SET is_active = FALSE
			WHERE is_active = TRUE AND expires_at < $1
		`, now)
		if err != nil {
			return err
		}
		count, err = result.RowsAffected()
		return err
	})
	return count, err
}
