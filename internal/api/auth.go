package api

import (
	"context"
	"errors"
	"strings"

	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/repository"
	"github.com/go-fuego/fuego"
)

// requestContext is the part of a fuego context the auth helpers need.
type requestContext interface {
	Context() context.Context
	Header(key string) string
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requireUser resolves the bearer token or fails with 401.
func (s *Server) requireUser(c requestContext) (*models.User, error) {
	token := bearerToken(c.Header("Authorization"))
	if token == "" {
		return nil, fuego.UnauthorizedError{Detail: "Authentication required"}
	}

	user, err := s.deps.Users.ByToken(c.Context(), token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fuego.UnauthorizedError{Detail: "Invalid or expired token"}
	}
	if err != nil {
		return nil, s.internal(err, "resolve token")
	}
	return user, nil
}

// requireRole is requireUser plus a role check (403 on mismatch).
func (s *Server) requireRole(c requestContext, role models.Role) (*models.User, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return nil, err
	}
	if user.Role != role && user.Role != models.RoleAdmin {
		return nil, fuego.ForbiddenError{Detail: "This action requires a " + string(role) + " account"}
	}
	return user, nil
}

// internal logs err and hides it from the caller.
func (s *Server) internal(err error, op string) error {
	s.log.Error().Err(err).Str("op", op).Msg("request failed")
	return fuego.InternalServerError{Detail: "Internal server error"}
}

// storageError maps repository sentinels onto HTTP errors.
func (s *Server) storageError(err error, op, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fuego.NotFoundError{Detail: what + " not found"}
	case errors.Is(err, repository.ErrConflict):
		return fuego.ConflictError{Detail: what + " already exists"}
	}
	return s.internal(err, op)
}
