package model

import (
	"time"
)

// DoctorSession grants one doctor time-boxed read access to one patient's
// record. Rows are mutated only to flip IsActive off; everything else is
// immutable after insert.
type DoctorSession struct {
	ID        string    `db:"id" json:"id"`
	PatientID string    `db:"patient_id" json:"patientId"`
	DoctorID  string    `db:"doctor_id" json:"doctorId"`
	TokenID   *string   `db:"token_id" json:"tokenId,omitempty"`
	GrantedAt time.Time `db:"granted_at" json:"grantedAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CreateDoctorSessionParams contains parameters for creating a doctor session
type CreateDoctorSessionParams struct {
	PatientID string
	DoctorID  string
	TokenID   *string
	GrantedAt time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the session's hard expiry has passed
func (s *DoctorSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
