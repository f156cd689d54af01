package handlers

import (
	"net/http"

	"github.com/isdelr/blog-client/internal/router"
	"github.com/rs/zerolog/hlog"
)

// RequireAuth sends visitors who do not own the session to the login page.
func RequireAuth(sessions *Browsers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.For(r).IsAuthenticated() {
				hlog.FromRequest(r).Debug().Str("path", r.URL.Path).Msg("Redirecting anonymous visitor to login")
				http.Redirect(w, r, router.Path(router.Location{Page: router.PageLogin}), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
