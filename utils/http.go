// utils/http.go - HTTP utility functions for net/http
package utils

import (
	"encoding/json"
	"net/http"
	"strings"
)

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// JSONError sends a JSON error response
func JSONError(w http.ResponseWriter, status int, message string) error {
	return JSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// BearerToken extracts a token from the Authorization header, falling back to
// the "token" query parameter and cookie used by browser websocket clients.
func BearerToken(r *http.Request) string {
	if token := ParseBearer(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ParseBearer returns the token from a "Bearer <token>" header value.
func ParseBearer(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
