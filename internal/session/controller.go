// Package session owns the signed-in identity shown across pages.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/auth"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// Status is the authentication state of the session.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
)

// API is the subset of the API client the controller drives.
type API interface {
	Login(ctx context.Context, email string) (string, error)
	VerifyMagicLink(ctx context.Context, token string) (string, error)
	Register(ctx context.Context, in models.RegisterInput) (models.User, error)
	CurrentUser(ctx context.Context) (models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileInput) (models.User, error)
	Logout(ctx context.Context) error
}

// State is a point-in-time copy of the session.
type State struct {
	Status        Status
	User          *models.User
	Loading       bool
	MagicLinkSent bool
	Email         string // address the last magic link was sent to
}

// Controller holds the current user and drives every auth transition.
// It is safe for concurrent use.
type Controller struct {
	api   API
	store tokenstore.Store

	mu    sync.Mutex
	state State
}

// New creates a controller whose initial status reflects whether store
// holds a token. Call Check to resolve a checking session.
func New(ctx context.Context, api API, store tokenstore.Store) (*Controller, error) {
	_, ok, err := store.Read(ctx)
	if err != nil {
		return nil, err
	}
	c := &Controller{api: api, store: store}
	c.state.Status = StatusUnauthenticated
	if ok {
		c.state.Status = StatusChecking
	}
	return c, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether a user is signed in.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status == StatusAuthenticated
}

// User returns the signed-in user, or nil.
func (c *Controller) User() *models.User {
	return c.Snapshot().User
}

func (c *Controller) setLoading(loading bool) {
	c.mu.Lock()
	c.state.Loading = loading
	c.mu.Unlock()
}

// Check resolves a checking session by fetching the current user. Any
// failure clears the stored token and leaves the session unauthenticated.
func (c *Controller) Check(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status != StatusChecking {
		c.mu.Unlock()
		return nil
	}
	c.state.Loading = true
	c.mu.Unlock()

	user, err := c.api.CurrentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		log.Warn().Err(err).Msg("Stored session rejected, clearing token")
		c.state.Status = StatusUnauthenticated
		c.state.User = nil
		if clearErr := c.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			return errors.Join(err, clearErr)
		}
		return err
	}
	c.state.Status = StatusAuthenticated
	c.state.User = &user
	log.Info().Int64("user_id", user.ID).Msg("Session restored")
	return nil
}

// Login requests a magic link for email. The session stays unauthenticated
// until the link is verified. The server's confirmation text is returned.
func (c *Controller) Login(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	c.setLoading(true)
	msg, err := c.api.Login(ctx, email)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		return "", err
	}
	c.state.MagicLinkSent = true
	c.state.Email = email
	return msg, nil
}

// VerifyMagicLink exchanges a magic-link token for a bearer token, stores
// it and loads the user it belongs to.
func (c *Controller) VerifyMagicLink(ctx context.Context, token string) error {
	c.setLoading(true)
	defer c.setLoading(false)

	bearer, err := c.api.VerifyMagicLink(ctx, token)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, bearer); err != nil {
		return c.signOut(ctx, err)
	}
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return c.signOut(ctx, err)
	}

	c.mu.Lock()
	c.state.Status = StatusAuthenticated
	c.state.User = &user
	c.state.MagicLinkSent = false
	c.state.Email = ""
	c.mu.Unlock()
	log.Info().Int64("user_id", user.ID).Msg("User signed in")
	return nil
}

// Register creates an account and then requests a magic link for it.
func (c *Controller) Register(ctx context.Context, in models.RegisterInput) (models.User, error) {
	c.setLoading(true)
	user, err := c.api.Register(ctx, in)
	c.setLoading(false)
	if err != nil {
		return models.User{}, err
	}
	log.Info().Int64("user_id", user.ID).Msg("Account registered")
	if _, err := c.Login(ctx, user.Email); err != nil {
		return user, err
	}
	return user, nil
}

// UpdateProfile saves in and replaces the in-memory user.
func (c *Controller) UpdateProfile(ctx context.Context, in models.ProfileInput) (models.User, error) {
	if !c.IsAuthenticated() {
		return models.User{}, apiclient.Unauthorized("Please log in to update your profile")
	}
	c.setLoading(true)
	user, err := c.api.UpdateProfile(ctx, in)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		return models.User{}, err
	}
	if c.state.Status == StatusAuthenticated {
		c.state.User = &user
	}
	return user, nil
}

// Refresh re-fetches the signed-in user, e.g. after a profile picture upload.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.IsAuthenticated() {
		return nil
	}
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.state.Status == StatusAuthenticated {
		c.state.User = &user
	}
	c.mu.Unlock()
	return nil
}

// Revalidate re-fetches the signed-in user. A rejected token is cleared as
// in Check; transport failures leave the session alone.
func (c *Controller) Revalidate(ctx context.Context) error {
	err := c.Refresh(ctx)
	if err == nil || !apiclient.IsUnauthorized(err) {
		return err
	}
	log.Warn().Err(err).Msg("Session expired, clearing token")
	return c.signOut(ctx, err)
}

// signOut drops the stored token and resets the session after cause. The
// previous user is forgotten too: the store no longer holds their token.
func (c *Controller) signOut(ctx context.Context, cause error) error {
	c.mu.Lock()
	c.state = State{Status: StatusUnauthenticated}
	c.mu.Unlock()
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Logout forgets the token and user. The server is not contacted.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.api.Logout(ctx)

	c.mu.Lock()
	c.state = State{Status: StatusUnauthenticated}
	c.mu.Unlock()
	log.Info().Msg("User signed out")
	return err
}

// TokenExpiry reports when the stored token expires, if it carries an exp
// claim. It is informational; the server remains the judge of validity.
func (c *Controller) TokenExpiry(ctx context.Context) (time.Time, bool) {
	token, ok, err := c.store.Read(ctx)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return auth.Expiry(token)
}
