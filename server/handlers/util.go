package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/signup/directory"
)

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse confirms a roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// statusFor maps directory errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrActivityNotFound), errors.Is(err, directory.ErrNotSignedUp):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrAlreadySignedUp):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
