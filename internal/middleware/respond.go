package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// IsAPI reports whether the request targets the JSON API.
func IsAPI(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}

// writeError answers API requests with the JSON envelope and browser
// requests with plain text.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if !IsAPI(r) {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{false, message})
}
