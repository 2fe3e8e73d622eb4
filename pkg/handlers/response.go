package handlers

import (
	"encoding/json"
	"net/http"
)

// Messages shared by several handlers.
const (
	MsgInvalidMethod  = "Invalid HTTP method"
	MsgInvalidJSON    = "Invalid JSON body"
	MsgInternalError  = "Internal server error"
	MsgBadRequest     = "Bad Request"
	MsgUnauthorized   = "Unauthorized"
	MsgUpstreamFailed = "Upstream service unavailable"
)

// ErrorResponse writes {"error": message} and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// StatusResponse writes a body whose "status" field mirrors the HTTP status code,
// e.g. {"status": 403, "message": "Unauthorized"}.
func StatusResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]any{
		"status":  statusCode,
		"message": message,
	})
}

// StatusErrorResponse writes {"status": code, "error": message}.
func StatusErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]any{
		"status": statusCode,
		"error":  message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
