package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/jobs"
	"github.com/blockedby/kandra/internal/models"
)

// JobsHandler turns view intents into job listing operations.
type JobsHandler struct {
	jobs JobsSlice
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(slice JobsSlice) *JobsHandler {
	return &JobsHandler{jobs: slice}
}

// State returns the job listing snapshot.
// GET /api/state/jobs
func (h *JobsHandler) State(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.jobs.Snapshot())
}

// Filter returns the current filter together with its query parameters.
// GET /api/state/filter
func (h *JobsHandler) Filter(w http.ResponseWriter, _ *http.Request) {
	f := h.jobs.Filter()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"filter": f,
		"query":  f.QueryParams().Encode(),
	})
}

// ApplyFilter applies one filter op and searches again when the search
// intent changed.
// POST /api/actions/filter
func (h *JobsHandler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	var op filter.Op
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		respondError(w, http.StatusBadRequest, "invalid filter op")
		return
	}

	// reject unknown ops before touching the slice
	if _, err := h.jobs.Filter().Apply(op); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.jobs.UpdateFilter(r.Context(), func(s filter.State) filter.State {
		next, _ := s.Apply(op)
		return next
	})
	if err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.jobs.Snapshot())
}

// Search loads the first page for the current filter.
// POST /api/actions/jobs/search
func (h *JobsHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Search(r.Context()); err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.jobs.Snapshot())
}

// LoadMore appends the next page.
// POST /api/actions/jobs/more
func (h *JobsHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.LoadMore(r.Context()); err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.jobs.Snapshot())
}

// ToggleBookmark flips the bookmark on a job.
// POST /api/actions/jobs/{id}/bookmark
func (h *JobsHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	on, err := h.jobs.ToggleBookmark(r.Context(), id)
	if errors.Is(err, jobs.ErrToggleInFlight) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"job_id": id, "bookmarked": on})
}

// Details loads one job into the detail slot.
// GET /api/actions/jobs/{id}
func (h *JobsHandler) Details(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetDetails(r.Context(), models.ID(chi.URLParam(r, "id")))
	if err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}
