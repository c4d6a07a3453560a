package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
)

const missingEmail = "email query parameter is required"

// SignupHandler handles requests to add a participant to an activity.
// It expects the activity name in the "name" path value and the participant
// in the "email" query parameter.
type SignupHandler struct {
	logger    *slog.Logger
	registrar Registrar
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(logger *slog.Logger, registrar Registrar) *SignupHandler {
	return &SignupHandler{
		logger:    logger,
		registrar: registrar,
	}
}

// ServeHTTP implements http.Handler.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	query := r.URL.Query()
	if !query.Has("email") {
		writeError(w, http.StatusUnprocessableEntity, missingEmail)
		return
	}
	email := query.Get("email")

	if err := h.registrar.SignUp(name, email); err != nil {
		h.logger.Debug("signup rejected", "activity", name, "email", email, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", email, name),
	})
}

// UnregisterHandler handles requests to remove a participant from an activity.
type UnregisterHandler struct {
	logger    *slog.Logger
	registrar Registrar
}

// NewUnregisterHandler creates a new UnregisterHandler.
func NewUnregisterHandler(logger *slog.Logger, registrar Registrar) *UnregisterHandler {
	return &UnregisterHandler{
		logger:    logger,
		registrar: registrar,
	}
}

// ServeHTTP implements http.Handler.
func (h *UnregisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	query := r.URL.Query()
	if !query.Has("email") {
		writeError(w, http.StatusUnprocessableEntity, missingEmail)
		return
	}
	email := query.Get("email")

	if err := h.registrar.Unregister(name, email); err != nil {
		h.logger.Debug("unregister rejected", "activity", name, "email", email, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Unregistered %s from %s", email, name),
	})
}
