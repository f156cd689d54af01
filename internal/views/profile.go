package views

import (
	"context"
	"strings"
	"time"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
)

// Profile shows and edits the signed-in user's profile.
type Profile struct {
	auth Auth
	api  ProfileAPI

	Form        models.ProfileInput
	Picture     Async[models.Image]
	Update      Async[models.User]
	Upload      Async[models.Image]
	TokenExpiry time.Time
}

func NewProfile(auth Auth, api ProfileAPI) *Profile {
	return &Profile{auth: auth, api: api}
}

// Load fills the form from the session user and fetches the profile
// picture. A user without a picture is not an error.
func (v *Profile) Load(ctx context.Context) error {
	user := v.auth.User()
	if user == nil {
		return v.Update.Fail(apiclient.Unauthorized("Please log in to view your profile"))
	}
	v.Form = models.ProfileInput{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Bio:       user.Bio,
		Website:   user.Website,
	}
	if exp, ok := v.auth.TokenExpiry(ctx); ok {
		v.TokenExpiry = exp
	}
	_, err := v.Picture.Run(ctx, func(ctx context.Context) (models.Image, error) {
		return v.api.GetUserProfilePicture(ctx, user.ID)
	})
	if apiclient.KindOf(err) == apiclient.KindNotFound {
		v.Picture.Reset()
		return nil
	}
	return err
}

// Save submits the form.
func (v *Profile) Save(ctx context.Context) error {
	v.Form.Email = strings.TrimSpace(v.Form.Email)
	v.Form.Website = strings.TrimSpace(v.Form.Website)
	if v.Form.Email != "" {
		if err := validateEmail(v.Form.Email); err != nil {
			return v.Update.Fail(err)
		}
	}
	_, err := v.Update.Run(ctx, func(ctx context.Context) (models.User, error) {
		return v.auth.UpdateProfile(ctx, v.Form)
	})
	return err
}

// UploadPicture replaces the profile picture and refreshes the session user.
func (v *Profile) UploadPicture(ctx context.Context, f ImageFile) error {
	if !v.auth.IsAuthenticated() {
		return v.Upload.Fail(apiclient.Unauthorized("Please log in to change your picture"))
	}
	if err := ValidateImage(f); err != nil {
		return v.Upload.Fail(err)
	}
	img, err := v.Upload.Run(ctx, func(ctx context.Context) (models.Image, error) {
		return v.api.UploadProfilePicture(ctx, f.upload())
	})
	if err != nil {
		return err
	}
	v.Picture.Set(img)
	return v.auth.Refresh(ctx)
}
