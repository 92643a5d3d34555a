package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/httputil"
	"github.com/carevault/access-server-go/internal/middleware"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/service"
)

// TokenHandler exposes patient QR token issuance and revocation. Patients act
// on their own record; admins name the patient in the request body.
type TokenHandler struct {
	tokens        *service.TokenService
	publicBaseURL string
}

func NewTokenHandler(tokens *service.TokenService, publicBaseURL string) *TokenHandler {
	return &TokenHandler{tokens: tokens, publicBaseURL: publicBaseURL}
}

func (h *TokenHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireRole(model.RolePatient, model.RoleAdmin))
	r.Post("/", h.Issue)
	r.Delete("/", h.Revoke)
	return r
}

type tokenRequest struct {
	PatientID string `json:"patientId"`
}

func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	patientID, err := h.resolvePatient(r, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.tokens.Issue(r.Context(), patientID, identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if issued.Reused {
		status = http.StatusOK
	}

	response := map[string]any{
		"tokenId":   issued.Token.ID,
		"patientId": issued.Token.PatientID,
		"expiresAt": formatTime(issued.Token.ExpiresAt),
		"reused":    issued.Reused,
		// The same opaque value backs both the QR payload and the typable
		// access key.
		"qrPayload": issued.Opaque,
		"accessKey": issued.Opaque,
	}
	if h.publicBaseURL != "" {
		response["shareUrl"] = h.publicBaseURL + "/qr/" + issued.Opaque
	}

	writeJSON(w, status, response)
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	patientID, err := h.resolvePatient(r, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.tokens.RevokeAllForPatient(r.Context(), patientID, identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"revoked": count,
	})
}

func (h *TokenHandler) resolvePatient(r *http.Request, identity *middleware.Identity) (string, error) {
	if identity.Role == model.RolePatient {
		return identity.UserID, nil
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PatientID == "" {
		return "", apperrors.MissingRequired("patientId")
	}
	return req.PatientID, nil
}
