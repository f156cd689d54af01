package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/isdelr/blog-client/internal/models"
)

// Login asks the server to email a magic link to email. The server's
// confirmation text is returned; no token is issued yet.
func (c *Client) Login(ctx context.Context, email string) (string, error) {
	body, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	return c.doText(ctx, call{
		op:          "login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        body,
		contentType: "application/json",
	})
}

// VerifyMagicLink exchanges a magic-link token for a bearer token.
func (c *Client) VerifyMagicLink(ctx context.Context, token string) (string, error) {
	const op = "verify magic link"
	text, err := c.doText(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/auth/verify-magic-link",
		query:  url.Values{"token": {token}},
	})
	if err != nil {
		return "", err
	}
	bearer := strings.Trim(text, `"`)
	if bearer == "" {
		return "", &Error{Kind: KindDecode, Status: http.StatusOK, Op: op, Message: "server returned an empty token"}
	}
	return bearer, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (models.User, error) {
	body, err := jsonBody(in)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	err = c.doJSON(ctx, call{
		op:          "register",
		method:      http.MethodPost,
		path:        "/auth/register",
		body:        body,
		contentType: "application/json",
		textBody:    true,
	}, &user)
	return user, err
}

// CurrentUser fetches the user the stored token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.doJSON(ctx, call{op: "fetch current user", method: http.MethodGet, path: "/auth/me"}, &user)
	return user, err
}

// Logout forgets the stored token. The server is not contacted.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}
