package views

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
)

// MaxTitleLength bounds post titles, in characters.
const MaxTitleLength = 255

// EditorForm is the editable state of a post.
type EditorForm struct {
	Title    string
	Content  string
	Status   models.PostStatus
	ImageID  *int64
	ImageURL string
}

// Input converts the form into an API payload with the given status.
func (f EditorForm) Input(status models.PostStatus) models.PostInput {
	return models.PostInput{
		Title:    strings.TrimSpace(f.Title),
		Content:  f.Content,
		Status:   status,
		ImageURL: f.ImageURL,
		ImageID:  f.ImageID,
	}
}

// PostEditor creates a post, or edits one when PostID is set.
type PostEditor struct {
	api    PostsAPI
	viewer Viewer

	PostID int64
	Form   EditorForm

	Loaded    Async[models.Post]
	Saving    Async[models.Post]
	Uploading Async[models.Image]
}

func NewPostEditor(api PostsAPI, viewer Viewer) *PostEditor {
	return &PostEditor{api: api, viewer: viewer, Form: EditorForm{Status: models.StatusDraft}}
}

// Location is the editor's own page.
func (v *PostEditor) Location() router.Location {
	if v.PostID == 0 {
		return router.Location{Page: router.PageCreatePost}
	}
	return router.Location{Page: router.PageEditPost, PostID: v.PostID}
}

// Load fills the form from post id.
func (v *PostEditor) Load(ctx context.Context, id int64) error {
	v.PostID = id
	post, err := v.Loaded.Run(ctx, func(ctx context.Context) (models.Post, error) {
		post, err := v.api.GetPost(ctx, id)
		if err != nil {
			return post, err
		}
		if !post.EditableBy(v.viewer.User()) {
			return models.Post{}, apiclient.Unauthorized("You are not authorized to edit this post")
		}
		return post, nil
	})
	if err != nil {
		return err
	}
	v.Form = EditorForm{
		Title:    post.Title,
		Content:  post.Content,
		Status:   post.Status,
		ImageID:  post.ImageID,
		ImageURL: post.ImageURL,
	}
	return nil
}

// Validate runs the required-field checks done before submitting.
func (v *PostEditor) Validate() error {
	title := strings.TrimSpace(v.Form.Title)
	switch {
	case title == "":
		return apiclient.Validation("Title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return apiclient.Validation("Title must be at most 255 characters")
	case strings.TrimSpace(v.Form.Content) == "":
		return apiclient.Validation("Content is required")
	}
	return nil
}

// UploadImage sends f as the featured image and attaches the result to the form.
func (v *PostEditor) UploadImage(ctx context.Context, f ImageFile) error {
	if err := ValidateImage(f); err != nil {
		return v.Uploading.Fail(err)
	}
	img, err := v.Uploading.Run(ctx, func(ctx context.Context) (models.Image, error) {
		u := f.upload()
		u.Type = models.ImageFeatured
		return v.api.UploadImage(ctx, u)
	})
	if err != nil {
		return err
	}
	id := img.ID
	v.Form.ImageID = &id
	v.Form.ImageURL = img.Location()
	return nil
}

// RemoveImage detaches the featured image.
func (v *PostEditor) RemoveImage() {
	v.Form.ImageID = nil
	v.Form.ImageURL = ""
	v.Uploading.Reset()
}

// Save creates or updates the post with status and returns the post's page.
// On failure the editor stays where it is.
func (v *PostEditor) Save(ctx context.Context, status models.PostStatus) (router.Location, error) {
	if !status.Valid() {
		status = models.StatusDraft
	}
	v.Form.Status = status
	if err := v.Validate(); err != nil {
		return v.Location(), v.Saving.Fail(err)
	}
	in := v.Form.Input(status)
	post, err := v.Saving.Run(ctx, func(ctx context.Context) (models.Post, error) {
		if v.PostID == 0 {
			return v.api.CreatePost(ctx, in)
		}
		return v.api.UpdatePost(ctx, v.PostID, in)
	})
	if err != nil {
		return v.Location(), err
	}
	return router.Post(post.ID), nil
}
