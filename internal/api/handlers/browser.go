package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/session"
	"github.com/rs/zerolog/hlog"
)

// BrowserCookie names the cookie that identifies the browser a page is served to.
const BrowserCookie = "blog_client_browser"

type browserKey struct{}

type browserID struct {
	id        string
	presented bool // false when the cookie was issued by this response
}

// Browsers ties the process-wide session to the one browser that signed in.
// Other browsers see the pages signed out and cannot act as the user.
type Browsers struct {
	session SessionProvider

	mu    sync.Mutex
	owner string
}

// NewBrowsers wraps session.
func NewBrowsers(session SessionProvider) *Browsers {
	return &Browsers{session: session}
}

// Identify makes sure every browser carries an id cookie.
func (b *Browsers) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bid := browserID{presented: true}
		if c, err := r.Cookie(BrowserCookie); err == nil && c.Value != "" {
			bid.id = c.Value
		} else {
			bid = browserID{id: uuid.NewString()}
			http.SetCookie(w, &http.Cookie{
				Name:     BrowserCookie,
				Value:    bid.id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), browserKey{}, bid)))
	})
}

// SameOrigin rejects state-changing requests that come from another site or
// from a browser that never loaded a page of this app.
func (b *Browsers) SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if reason := crossSite(r); reason != "" {
			hlog.FromRequest(r).Warn().
				Str("reason", reason).
				Str("origin", r.Header.Get("Origin")).
				Str("path", r.URL.Path).
				Msg("Rejected cross-site request")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func crossSite(r *http.Request) string {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return "fetch site"
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			return "origin"
		}
	}
	if bid, ok := r.Context().Value(browserKey{}).(browserID); !ok || !bid.presented {
		return "no browser cookie"
	}
	return ""
}

// For returns the session as seen by the browser that sent r.
func (b *Browsers) For(r *http.Request) SessionProvider {
	bid, _ := r.Context().Value(browserKey{}).(browserID)
	owned := false
	b.mu.Lock()
	switch {
	case !b.session.IsAuthenticated():
		b.owner = ""
	case b.owner == "" && bid.presented:
		// A session restored from the token store belongs to the first
		// browser that comes back with its cookie.
		b.owner = bid.id
		owned = true
	default:
		owned = b.owner == bid.id
	}
	b.mu.Unlock()
	return &browserSession{SessionProvider: b.session, browsers: b, id: bid.id, owned: owned}
}

func (b *Browsers) claim(id string) {
	b.mu.Lock()
	b.owner = id
	b.mu.Unlock()
}

// browserSession hides the signed-in user from browsers that do not own the session.
type browserSession struct {
	SessionProvider
	browsers *Browsers
	id       string
	owned    bool
}

func (s *browserSession) IsAuthenticated() bool {
	return s.owned && s.SessionProvider.IsAuthenticated()
}

func (s *browserSession) User() *models.User {
	if !s.owned {
		return nil
	}
	return s.SessionProvider.User()
}

func (s *browserSession) Snapshot() session.State {
	state := s.SessionProvider.Snapshot()
	if !s.owned && state.Status != session.StatusUnauthenticated {
		return session.State{Status: session.StatusUnauthenticated, MagicLinkSent: state.MagicLinkSent, Email: state.Email}
	}
	return state
}

func (s *browserSession) VerifyMagicLink(ctx context.Context, token string) error {
	if err := s.SessionProvider.VerifyMagicLink(ctx, token); err != nil {
		return err
	}
	s.browsers.claim(s.id)
	s.owned = true
	return nil
}

func (s *browserSession) UpdateProfile(ctx context.Context, in models.ProfileInput) (models.User, error) {
	if !s.owned {
		return models.User{}, apiclient.Unauthorized("Please log in to update your profile")
	}
	return s.SessionProvider.UpdateProfile(ctx, in)
}

func (s *browserSession) Refresh(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.SessionProvider.Refresh(ctx)
}

func (s *browserSession) TokenExpiry(ctx context.Context) (time.Time, bool) {
	if !s.owned {
		return time.Time{}, false
	}
	return s.SessionProvider.TokenExpiry(ctx)
}

// Logout from a browser that does not own the session leaves it alone.
func (s *browserSession) Logout(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	err := s.SessionProvider.Logout(ctx)
	s.browsers.claim("")
	return err
}
