// Package api holds the HTTP handlers for the cleanup service. Handlers are
// thin: they validate input, call the store or an orchestrator, and encode
// JSON. Long-running work (runs, scans, execution) happens in background
// goroutines and is observed by polling.
package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// writeJSON encodes to a buffer first to prevent partial writes, then sends
// the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
	}
}

// decodeJSON decodes the request body, writing a 400 on failure. Returns
// false when the caller should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("API: Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pathSuffix extracts the final path segment after the given prefix, writing
// a 400 when it is missing. Returns ("", false) when the caller should stop.
func pathSuffix(w http.ResponseWriter, r *http.Request, prefix, name string) (string, bool) {
	suffix := strings.TrimPrefix(r.URL.Path, prefix)
	if suffix == "" || suffix == r.URL.Path || strings.Contains(suffix, "/") {
		http.Error(w, name+" is required", http.StatusBadRequest)
		return "", false
	}
	return suffix, true
}
