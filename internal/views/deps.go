package views

import (
	"context"
	"time"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/session"
)

// PostsAPI is what the post views need from the API client.
type PostsAPI interface {
	ListPosts(ctx context.Context, p apiclient.ListPostsParams) (models.PostPage, error)
	GetPost(ctx context.Context, id int64) (models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (models.Post, error)
	UpdatePost(ctx context.Context, id int64, in models.PostInput) (models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ClapPost(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, u apiclient.ImageUpload) (models.Image, error)
}

// ProfileAPI is what the profile view needs from the API client.
type ProfileAPI interface {
	GetUserProfilePicture(ctx context.Context, userID int64) (models.Image, error)
	UploadProfilePicture(ctx context.Context, u apiclient.ImageUpload) (models.Image, error)
}

// Viewer identifies who is looking at a page.
type Viewer interface {
	User() *models.User
	IsAuthenticated() bool
}

// Auth is the session surface used by the login, register and profile views.
type Auth interface {
	Viewer
	Snapshot() session.State
	Login(ctx context.Context, email string) (string, error)
	VerifyMagicLink(ctx context.Context, token string) error
	Register(ctx context.Context, in models.RegisterInput) (models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileInput) (models.User, error)
	Refresh(ctx context.Context) error
	TokenExpiry(ctx context.Context) (time.Time, bool)
}

var _ Auth = (*session.Controller)(nil)
