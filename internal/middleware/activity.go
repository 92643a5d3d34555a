package middleware

import (
	"net/http"

	"github.com/carevault/access-server-go/internal/idle"
	"github.com/carevault/access-server-go/internal/model"
)

// ActivityMiddleware feeds the auto-logout registry: every authenticated
// patient request counts as an activity signal. Doctor sessions have their
// own idle tracking inside the session manager and are not touched here.
type ActivityMiddleware struct {
	registry *idle.Registry
}

func NewActivityMiddleware(registry *idle.Registry) *ActivityMiddleware {
	return &ActivityMiddleware{registry: registry}
}

func (m *ActivityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity := GetIdentity(r.Context()); identity != nil && identity.Role == model.RolePatient {
			m.registry.Touch(identity.UserID)
		}
		next.ServeHTTP(w, r)
	})
}
