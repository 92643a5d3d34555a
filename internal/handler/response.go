package handler

import (
	"net/http"
	"time"

	"github.com/carevault/access-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
