package apiclient

import (
	"context"
	"net/http"

	"github.com/isdelr/blog-client/internal/models"
)

// UpdateProfile updates the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileInput) (models.User, error) {
	body, err := jsonBody(in)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	err = c.doJSON(ctx, call{
		op:          "update profile",
		method:      http.MethodPut,
		path:        "/users/profile",
		body:        body,
		contentType: "application/json",
	}, &user)
	return user, err
}
