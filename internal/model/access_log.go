package model

import (
	"encoding/json"
	"time"
)

// AccessLog is an append-only record of a grant, validation, access or
// failure event. Rows are never updated or deleted by this service.
type AccessLog struct {
	ID        string           `db:"id" json:"id"`
	PatientID string           `db:"patient_id" json:"patientId"`
	DoctorID  *string          `db:"doctor_id" json:"doctorId,omitempty"`
	AdminID   *string          `db:"admin_id" json:"adminId,omitempty"`
	Action    string           `db:"action" json:"action"`
	Details   *json.RawMessage `db:"details" json:"details,omitempty"`
	Origin    AccessOrigin     `db:"origin" json:"origin"`
	IPAddress *string          `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent *string          `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// CreateAccessLogParams contains parameters for appending an access log entry
type CreateAccessLogParams struct {
	PatientID string
	DoctorID  *string
	AdminID   *string
	Action    string
	Details   *json.RawMessage
	Origin    AccessOrigin
	IPAddress *string
	UserAgent *string
}
