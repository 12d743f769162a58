// Package api implements the cbl REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authRealm names the protected surface in WWW-Authenticate challenges.
const authRealm = "cbl"

// AuthMiddleware guards the API with the static token from auth.token
// (auth.mode: token in config.yaml). With enabled false every request passes.
// Rejected requests get 401 with a Bearer challenge for the cbl realm.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+authRealm+`"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || tok == "" {
		return "", false
	}
	return tok, true
}
