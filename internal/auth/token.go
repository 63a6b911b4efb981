package auth

import (
	"net/http"
	"strings"
)

const CookieName = "access_token"

// ExtractToken reads the session token from the access_token cookie,
// falling back to a Bearer Authorization header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}
