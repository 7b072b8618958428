package api

import (
	"context"
	"net/http"

	"dotproduct/internal/core"
)

// LoginResult is the identity and the fresh tokens issued by a login.
type LoginResult struct {
	Detail string
	User   core.User
	Tokens Tokens
}

type loginResponse struct {
	Detail    string    `json:"detail"`
	User      core.User `json:"user"`
	CSRFToken string    `json:"csrf_token"`
}

// Login authenticates credentials. The session id comes from the backend's
// Set-Cookie; the anti-forgery token from the body, falling back to its cookie.
func (c *Client) Login(ctx context.Context, creds core.Credentials) (*LoginResult, error) {
	var body loginResponse
	resp, err := c.call(ctx, request{
		method:         http.MethodPost,
		path:           "/auth/login/",
		body:           creds,
		credentialCall: true,
	}, &body)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Detail: body.Detail, User: body.User}
	result.Tokens.CSRFToken = body.CSRFToken
	for _, cookie := range resp.cookies {
		switch cookie.Name {
		case BackendSessionCookie:
			result.Tokens.SessionID = cookie.Value
		case BackendCSRFCookie:
			if result.Tokens.CSRFToken == "" {
				result.Tokens.CSRFToken = cookie.Value
			}
		}
	}
	return result, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, reg core.Registration) (core.User, error) {
	var body struct {
		Detail string    `json:"detail"`
		User   core.User `json:"user"`
	}
	_, err := c.call(ctx, request{
		method:         http.MethodPost,
		path:           "/auth/register/",
		body:           reg,
		credentialCall: true,
	}, &body)
	return body.User, err
}

func (c *Client) Logout(ctx context.Context, tokens Tokens) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/logout/", tokens: tokens})
	return err
}

// CurrentUser returns the identity bound to tokens.
func (c *Client) CurrentUser(ctx context.Context, tokens Tokens) (core.User, error) {
	var user core.User
	_, err := c.call(ctx, request{method: http.MethodGet, path: "/auth/user/", tokens: tokens}, &user)
	return user, err
}
