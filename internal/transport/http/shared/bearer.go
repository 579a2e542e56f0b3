package shared

import (
	"net/http"
	"strings"
)

// BearerToken extracts the bearer token from the Authorization header.
// Returns "" when the header is missing or not a Bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
