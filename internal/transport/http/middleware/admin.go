package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const credentialKey contextKey = "admin_credential"

// AdminSecretHeader carries the admin credential on admin-only read routes.
const AdminSecretHeader = "X-Admin-Secret"

// AdminCredential returns middleware that requires the admin credential header
// and injects it into the request context. Matching happens in the service.
func AdminCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := strings.TrimSpace(r.Header.Get(AdminSecretHeader))
		if cred == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing admin credential")
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CredentialFromContext extracts the admin credential from the request context.
func CredentialFromContext(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(credentialKey).(string)
	return c, ok && c != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
