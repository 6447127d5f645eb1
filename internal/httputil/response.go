package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

// WriteJSON encodes v to w with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("Failed to encode JSON response: %v", err)
	}
}

// WriteJSONError reports a handler failure to the client as
// {"error": msg} with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
