package views

import (
	"context"
	"net/mail"
	"strings"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
)

func validateEmail(email string) error {
	if email == "" {
		return apiclient.Validation("Email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apiclient.Validation("Please enter a valid email address")
	}
	return nil
}

// Login requests magic links and verifies them.
type Login struct {
	auth Auth

	Email   string
	Request Async[string] // server confirmation text
	Verify  Async[struct{}]
}

func NewLogin(auth Auth) *Login {
	l := &Login{auth: auth}
	if s := auth.Snapshot(); s.MagicLinkSent {
		l.Email = s.Email
	}
	return l
}

// MagicLinkSent reports whether a link is waiting in the user's inbox.
func (v *Login) MagicLinkSent() bool {
	return v.auth.Snapshot().MagicLinkSent
}

// Submit requests a magic link for email.
func (v *Login) Submit(ctx context.Context, email string) error {
	v.Email = strings.TrimSpace(email)
	if err := validateEmail(v.Email); err != nil {
		return v.Request.Fail(err)
	}
	_, err := v.Request.Run(ctx, func(ctx context.Context) (string, error) {
		return v.auth.Login(ctx, v.Email)
	})
	return err
}

// VerifyToken completes sign-in with the token from a magic link and
// returns the page to land on.
func (v *Login) VerifyToken(ctx context.Context, token string) (router.Location, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return router.Location{Page: router.PageLogin}, v.Verify.Fail(apiclient.Validation("The sign-in link is missing its token"))
	}
	_, err := v.Verify.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.auth.VerifyMagicLink(ctx, token)
	})
	if err != nil {
		return router.Location{Page: router.PageLogin}, err
	}
	return router.Home, nil
}

// Register creates accounts.
type Register struct {
	auth Auth

	Form   models.RegisterInput
	Submit Async[models.User]
}

func NewRegister(auth Auth) *Register {
	return &Register{auth: auth}
}

// Validate runs the required-field checks done before submitting.
func (v *Register) Validate() error {
	f := &v.Form
	f.Username = strings.TrimSpace(f.Username)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	switch {
	case f.Username == "":
		return apiclient.Validation("Username is required")
	case f.FirstName == "":
		return apiclient.Validation("First name is required")
	case f.LastName == "":
		return apiclient.Validation("Last name is required")
	}
	return validateEmail(f.Email)
}

// Save registers the account in Form. On success a magic link has been
// sent and the browser continues to the login page.
func (v *Register) Save(ctx context.Context) (router.Location, error) {
	here := router.Location{Page: router.PageRegister}
	if err := v.Validate(); err != nil {
		return here, v.Submit.Fail(err)
	}
	if _, err := v.Submit.Run(ctx, func(ctx context.Context) (models.User, error) {
		return v.auth.Register(ctx, v.Form)
	}); err != nil {
		return here, err
	}
	return router.Location{Page: router.PageLogin}, nil
}
