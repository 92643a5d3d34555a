package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carevault/access-server-go/internal/database"
	"github.com/carevault/access-server-go/internal/model"
)

// AccessLogRepository is append-only: entries are inserted and listed, never
// updated or deleted. Retention is an operational concern outside this
// service.
type AccessLogRepository interface {
	Append(ctx context.Context, params model.CreateAccessLogParams) (*model.AccessLog, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]model.AccessLog, error)
	CountByPatient(ctx context.Context, patientID string) (int, error)
}

type accessLogRepo struct {
	db *sqlx.DB
}

func NewAccessLogRepository(db *sqlx.DB) AccessLogRepository {
	return &accessLogRepo{db: db}
}

func (r *accessLogRepo) Append(ctx context.Context, params model.CreateAccessLogParams) (*model.AccessLog, error) {
	var entry model.AccessLog
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &entry, `
			INSERT INTO access_logs (patient_id, doctor_id, admin_id, action, details, origin, ip_address, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		`, params.PatientID, params.DoctorID, params.AdminID, params.Action,
			params.Details, params.Origin, params.IPAddress, params.UserAgent)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *accessLogRepo) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]model.AccessLog, error) {
	entries := []model.AccessLog{}
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &entries, `
			SELECT * FROM access_logs
			WHERE patient_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, patientID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *accessLogRepo) CountByPatient(ctx context.Context, patientID string) (int, error) {
	var count int
	err := database.Call(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM access_logs WHERE patient_id = $1
		`, patientID)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
