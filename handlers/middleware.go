package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"licensemanager.app/cloud/internal/logger"
)

// requireSession gates the management API. The session collaborator is
// out of scope here; a caller presenting the configured bearer token
// counts as an established identity.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Config.SessionToken)) != 1 {
			writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer is the fail-closed boundary: any panic while resolving a
// request becomes a generic server error with no internal detail.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.CurrentHub().Recover(rec)
				logger.Error("Panic while serving request", map[string]interface{}{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"status": "invalid",
					"error":  "Server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
