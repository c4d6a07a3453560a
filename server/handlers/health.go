package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/signup/buildinfo"
)

// HandleHealth is a simple health check handler that returns "ok".
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// VersionResponse describes the running binary.
type VersionResponse struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
}

// VersionHandler reports build properties and process start time.
type VersionHandler struct {
	resp VersionResponse
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(startedAt time.Time, hostname string) *VersionHandler {
	return &VersionHandler{
		resp: VersionResponse{
			Build:     buildinfo.Get(),
			StartedAt: startedAt,
			Hostname:  hostname,
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resp)
}
