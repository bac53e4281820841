package api

import (
	"context"
	"net/http"
)

// AuthResult is the outcome of a successful login, registration, or refresh
// exchange.
type AuthResult struct {
	Credentials Credentials
	User        User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Response
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Login exchanges credentials for a token pair and the user record. The
// password is transmitted once and never retained.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{
		Credentials: Credentials{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:        resp.User,
	}, nil
}

// Register creates an account and returns a fresh session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", registerRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{
		Credentials: Credentials{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:        resp.User,
	}, nil
}

// Verify asks the server whether the current access token is still valid.
// An auth failure goes through the usual refresh path first, so Verify only
// errors once the session is truly unrecoverable.
func (c *Client) Verify(ctx context.Context) error {
	var resp Response
	return c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &resp)
}

// Logout invalidates the given refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var resp Response
	return c.do(ctx, http.MethodPost, "/api/auth/logout", logoutRequest{RefreshToken: refreshToken}, &resp)
}

// LogoutAll invalidates every refresh token issued to the user.
func (c *Client) LogoutAll(ctx context.Context, refreshToken string) error {
	var resp Response
	return c.do(ctx, http.MethodPost, "/api/auth/logout-all", logoutRequest{RefreshToken: refreshToken}, &resp)
}
