package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carevault/access-server-go/internal/httputil"
	"github.com/carevault/access-server-go/internal/service"
)

// EmergencyHandler serves the anonymous public scan flow. It sits outside
// every identity middleware; the only protections are the rate limit and the
// short grant window.
type EmergencyHandler struct {
	emergency *service.EmergencyService
	limiter   *service.RateLimiter
}

func NewEmergencyHandler(emergency *service.EmergencyService, limiter *service.RateLimiter) *EmergencyHandler {
	return &EmergencyHandler{emergency: emergency, limiter: limiter}
}

func (h *EmergencyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{token}", h.Grant)
	return r
}

func (h *EmergencyHandler) Grant(w http.ResponseWriter, r *http.Request) {
	allowed, resetAt := h.limiter.CheckEmergencyLimit(r.Context(), clientIP(r))
	if !allowed {
		w.Header().Set("Retry-After", strconv.FormatInt(resetAt.Unix(), 10))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "Rate limit exceeded",
		})
		return
	}

	token := chi.URLParam(r, "token")
	grant, err := h.emergency.Grant(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
