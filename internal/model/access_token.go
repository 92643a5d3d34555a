package model

import (
	"time"
)

// AccessToken is the long-lived grant behind a patient's QR code. The token
// column holds the single identifier that older schemas exposed twice, as
// raw_value and access_key.
type AccessToken struct {
	ID        string      `db:"id" json:"id"`
	PatientID string      `db:"patient_id" json:"patientId"`
	Token     string      `db:"token" json:"-"`
	Status    TokenStatus `db:"status" json:"status"`
	ExpiresAt time.Time   `db:"expires_at" json:"expiresAt"`
	CreatedBy string      `db:"created_by" json:"createdBy"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// CreateAccessTokenParams contains parameters for inserting an access token
type CreateAccessTokenParams struct {
	PatientID string
	Token     string
	ExpiresAt time.Time
	CreatedBy string
}

// IsExpired checks if the token's expiry instant has passed
func (t *AccessToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsValid checks if the token is active and not past expiry
func (t *AccessToken) IsValid(now time.Time) bool {
	return t.Status == TokenStatusActive && !t.IsExpired(now)
}
