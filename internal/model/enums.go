package model

type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusUsed    TokenStatus = "used"
)

type ActorRole string

const (
	RolePatient ActorRole = "patient"
	RoleDoctor  ActorRole = "doctor"
	RoleAdmin   ActorRole = "admin"
)

// AccessOrigin tags the channel an access attempt came through, not the
// network path.
type AccessOrigin string

const (
	OriginCameraScan  AccessOrigin = "camera_scan"
	OriginManualEntry AccessOrigin = "manual_entry"
	OriginPublicLink  AccessOrigin = "public_link"
	OriginSweep       AccessOrigin = "sweep"
	OriginSystem      AccessOrigin = "system"
)
