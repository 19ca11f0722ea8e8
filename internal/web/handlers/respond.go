package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blockedby/kandra/internal/apiclient"
)

// respondJSON is a helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err // Client disconnected
	}
}

// respondError is a helper function to respond with a JSON error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondSliceError reports a failed slice operation. The message is the one
// the slice stored; the status mirrors the error kind.
func respondSliceError(w http.ResponseWriter, err error) {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		// local validation, nothing was sent
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusBadGateway
	switch apiErr.Kind {
	case apiclient.KindUnauthorized:
		status = http.StatusUnauthorized
	case apiclient.KindValidation:
		status = http.StatusUnprocessableEntity
		if apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
	case apiclient.KindTransport:
		status = http.StatusServiceUnavailable
	}
	respondError(w, status, apiErr.Message)
}
