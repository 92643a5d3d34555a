package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carevault/access-server-go/internal/audit"
	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/httputil"
	"github.com/carevault/access-server-go/internal/middleware"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/service"
	"github.com/carevault/access-server-go/internal/util"
)

var grantOrigins = []string{
	string(model.OriginCameraScan),
	string(model.OriginManualEntry),
}

// AccessHandler is the doctor-facing surface: exchanging a scanned or typed
// code for a session, gating reads on that session, and ending it.
type AccessHandler struct {
	validator *service.Validator
	manager   *service.SessionManager
	logs      repository.AccessLogRepository
	aud       *audit.Writer
}

func NewAccessHandler(
	validator *service.Validator,
	manager *service.SessionManager,
	logs repository.AccessLogRepository,
	aud *audit.Writer,
) *AccessHandler {
	return &AccessHandler{
		validator: validator,
		manager:   manager,
		logs:      logs,
		aud:       aud,
	}
}

func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.RequireRole(model.RoleDoctor)).Post("/grants", h.CreateGrant)
	r.With(middleware.RequireRole(model.RoleDoctor)).Post("/sessions/{sessionID}/validate", h.ValidateSession)
	r.With(middleware.RequireRole(model.RoleDoctor)).Delete("/sessions/{sessionID}", h.RevokeSession)
	r.With(middleware.RequireRole(model.RolePatient, model.RoleAdmin)).
		Get("/patients/{patientID}/logs", h.ListAccessLogs)
	return r
}

type grantRequest struct {
	Code   string `json:"code"`
	Origin string `json:"origin"`
}

// CreateGrant runs a scanned QR payload or typed access key through the
// validator and, on success, opens a doctor session. A capacity failure is
// surfaced distinctly from an invalid code: the doctor should close a
// session, not re-scan.
func (h *AccessHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.WriteError(w, apperrors.MissingRequired("code"))
		return
	}
	if !util.IsValidEnum(req.Origin, grantOrigins) {
		httputil.WriteError(w, apperrors.InvalidInput("origin", "unknown origin tag"))
		return
	}
	origin := model.AccessOrigin(req.Origin)
	if req.Origin == "" {
		origin = model.OriginCameraScan
	}

	result, err := h.validator.Validate(r.Context(), req.Code, origin)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !result.Valid {
		httputil.WriteError(w, apperrors.InvalidGrant())
		return
	}

	tokenID := result.TokenID
	session, err := h.manager.Create(r.Context(), result.PatientID, identity.UserID, &tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.aud.RecordFromRequest(r, audit.Entry{
		Action:    audit.ActionAccessGranted,
		PatientID: session.PatientID,
		DoctorID:  identity.UserID,
		Origin:    origin,
		Details: map[string]any{
			"sessionId": session.ID,
		},
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": session.ID,
		"patientId": session.PatientID,
		"grantedAt": formatTime(session.GrantedAt),
		"expiresAt": formatTime(session.ExpiresAt),
	})
}

// ValidateSession is the gate in front of any subsequent record read.
func (h *AccessHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		httputil.WriteError(w, apperrors.InvalidInput("sessionId", "must be a UUID"))
		return
	}

	valid, err := h.manager.Validate(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !valid {
		httputil.WriteError(w, apperrors.SessionRevoked())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
	})
}

func (h *AccessHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		httputil.WriteError(w, apperrors.InvalidInput("sessionId", "must be a UUID"))
		return
	}

	if err := h.manager.Revoke(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAccessLogs feeds the administrative audit view. Patients may read their
// own trail; admins may read anyone's.
func (h *AccessHandler) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	patientID := chi.URLParam(r, "patientID")

	if identity.Role == model.RolePatient && identity.UserID != patientID {
		httputil.WriteError(w, apperrors.Forbidden("Patients may only read their own access log"))
		return
	}

	p := ParsePagination(r)
	entries, err := h.logs.ListByPatient(r.Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	total, err := h.logs.CountByPatient(r.Context(), patientID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
		"limit":   p.Limit,
		"offset":  p.Offset,
	})
}
