package apiclient

import (
	"context"
	"net/http"

	"github.com/blockedby/kandra/internal/models"
)

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// RegisterRequest holds the profile fields of a new account.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name,omitempty"`
	Role     models.Role `json:"role,omitempty"`
}

// Login exchanges credentials for a token. It does not configure the token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}

	var res AuthResult
	if err := c.doAnonymous(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, c.fail(ctx, http.MethodPost, "/auth/login", "", &Error{Kind: KindServer, Message: MsgServerError})
	}
	return &res, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.doAnonymous(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, c.fail(ctx, http.MethodPost, "/auth/register", "", &Error{Kind: KindServer, Message: MsgServerError})
	}
	return &res, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.getOne(ctx, http.MethodGet, "/auth/me", nil, "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
