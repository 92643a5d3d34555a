package audit

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
)

const (
	ActionTokenGenerated   = "token_generated"
	ActionTokenReused      = "token_reused"
	ActionTokenRevoked     = "token_revoked"
	ActionScanAttempt      = "qr_scan_attempt"
	ActionAccessKeyAttempt = "access_key_attempt"
	ActionAccessGranted    = "access_key_granted"
	ActionSessionCreated   = "session_created"
	ActionSessionRevoked   = "session_revoked"
	ActionPublicAccess     = "qr_public_access"
	ActionAutoLogout       = "auto_logout"
)

// UnknownPatientID is the sentinel recorded when a revoke races the cache and
// the owning patient is no longer known.
const UnknownPatientID = "unknown"

// Entry is one access event. Token values placed in Details must already be
// redacted by the caller.
type Entry struct {
	Action    string
	PatientID string
	DoctorID  string
	AdminID   string
	Origin    model.AccessOrigin
	Details   map[string]any
	IP        string
	UserAgent string
}

// Writer appends entries to the access_logs table and mirrors each event to
// the structured log. A failed insert is logged but never surfaced: an audit
// miss must not block the access decision it describes.
type Writer struct {
	logs repository.AccessLogRepository
}

func NewWriter(logs repository.AccessLogRepository) *Writer {
	return &Writer{logs: logs}
}

func (w *Writer) Record(ctx context.Context, entry Entry) {
	w.emit(entry)

	params := model.CreateAccessLogParams{
		PatientID: entry.PatientID,
		Action:    entry.Action,
		Origin:    entry.Origin,
		DoctorID:  optional(entry.DoctorID),
		AdminID:   optional(entry.AdminID),
		IPAddress: optional(entry.IP),
		UserAgent: optional(entry.UserAgent),
	}
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			log.Error().Err(err).Str("action", entry.Action).Msg("marshal audit details")
		} else {
			raw := json.RawMessage(data)
			params.Details = &raw
		}
	}

	if _, err := w.logs.Append(ctx, params); err != nil {
		log.Error().Err(err).Str("action", entry.Action).Msg("append access log entry")
	}
}

// RecordFromRequest fills origin metadata from the request before recording.
func (w *Writer) RecordFromRequest(r *http.Request, entry Entry) {
	entry.IP = clientIP(r)
	entry.UserAgent = r.UserAgent()
	w.Record(r.Context(), entry)
}

func (w *Writer) emit(entry Entry) {
	logger := log.With().
		Str("audit", "access").
		Str("action", entry.Action).
		Str("origin", string(entry.Origin)).
		Logger()

	if entry.PatientID != "" {
		logger = logger.With().Str("patient_id", entry.PatientID).Logger()
	}
	if entry.DoctorID != "" {
		logger = logger.With().Str("doctor_id", entry.DoctorID).Logger()
	}
	if entry.AdminID != "" {
		logger = logger.With().Str("admin_id", entry.AdminID).Logger()
	}
	if entry.IP != "" {
		logger = logger.With().Str("ip", entry.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range entry.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("access audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
