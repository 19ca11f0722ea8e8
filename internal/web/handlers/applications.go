package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/kandra/internal/applications"
	"github.com/blockedby/kandra/internal/models"
)

// ApplicationsHandler exposes the application history and status changes.
type ApplicationsHandler struct {
	apps    ApplicationsSlice
	company CompanySlice
}

// NewApplicationsHandler creates a new ApplicationsHandler. company may be nil.
func NewApplicationsHandler(apps ApplicationsSlice, company CompanySlice) *ApplicationsHandler {
	return &ApplicationsHandler{apps: apps, company: company}
}

// State returns the applications snapshot, stats included.
// GET /api/state/applications
func (h *ApplicationsHandler) State(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.apps.Snapshot())
}

// CompanyState returns the company-side snapshot.
// GET /api/state/company
func (h *ApplicationsHandler) CompanyState(w http.ResponseWriter, _ *http.Request) {
	if h.company == nil {
		respondError(w, http.StatusNotFound, "company view is not available")
		return
	}
	respondJSON(w, http.StatusOK, h.company.Snapshot())
}

// Refresh re-fetches the history.
// POST /api/actions/applications/refresh
func (h *ApplicationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.apps.ListMine(r.Context()); err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.apps.Snapshot())
}

// UpdateStatus changes the status of one application.
// PUT /api/actions/applications/{id}/status
func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := models.ParseApplicationStatus(payload.Status)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	app, err := h.apps.UpdateStatus(r.Context(), models.ID(chi.URLParam(r, "id")), status)
	if errors.Is(err, applications.ErrUpdateInFlight) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}
