// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": msg} body.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// pathSegments splits the request path after prefix into its non-empty segments.
func pathSegments(path, prefix string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimPrefix(path, prefix), "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
