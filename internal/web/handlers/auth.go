package handlers

import (
	"encoding/json"
	"net/http"
)

// AuthHandler handles sign-in and sign-out requests
type AuthHandler struct {
	auth AuthSlice
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthSlice) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// GetStatus returns the authentication snapshot
// GET /api/state/auth
func (h *AuthHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.auth.Snapshot())
}

// Login signs in with email and password
// POST /api/actions/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.auth.Login(r.Context(), payload.Email, payload.Password); err != nil {
		respondSliceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.auth.Snapshot())
}

// Logout clears the session
// POST /api/actions/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.auth.Snapshot())
}
