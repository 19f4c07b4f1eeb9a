// Package web serves the postdeck HTML pages using chi.
package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware guards every page with a shared token when enabled.
// Scripts send "Authorization: Bearer <token>"; browsers get a Basic auth
// prompt and may use any user name with the token as password.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || authorized(r, token) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="postdeck"`)
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		})
	}
}

func authorized(r *http.Request, token string) bool {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return equal(strings.TrimPrefix(auth, "Bearer "), token)
	}
	if _, pass, ok := r.BasicAuth(); ok {
		return equal(pass, token)
	}
	return false
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
