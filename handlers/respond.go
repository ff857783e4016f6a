package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bnpl-checkout/logger"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func sendJSONError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	logger.FromContext(r.Context()).Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads an optional JSON body into dst. An empty body is not an
// error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
