package handlers

import (
	"net/http"
)

// ActivitiesHandler handles requests for the full activity listing.
type ActivitiesHandler struct {
	lister ActivityLister
}

// NewActivitiesHandler creates a new ActivitiesHandler.
func NewActivitiesHandler(lister ActivityLister) *ActivitiesHandler {
	return &ActivitiesHandler{
		lister: lister,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.lister.List())
}

// ActivityHandler handles requests for a single activity.
// It expects the activity name in the "name" path value.
type ActivityHandler struct {
	getter ActivityGetter
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(getter ActivityGetter) *ActivityHandler {
	return &ActivityHandler{
		getter: getter,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	activity, err := h.getter.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activity)
}
