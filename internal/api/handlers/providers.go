package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/isdelr/blog-client/internal/views"
)

// SessionProvider is the session surface the pages need.
type SessionProvider interface {
	views.Auth
	Logout(ctx context.Context) error
}

// ImageProvider fetches image binaries for the proxy route.
type ImageProvider interface {
	GetImageFile(ctx context.Context, id int64) (apiclient.ImageFile, error)
}

// newPage starts the data for a page rendered for r.
func newPage(r *http.Request, s SessionProvider, title string) PageData {
	return PageData{
		Title:   title,
		Session: s.Snapshot(),
		Current: router.Parse(r.URL.Path, r.URL.Query()),
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// redirect sends the browser to loc using the shared navigation rules.
func redirect(w http.ResponseWriter, r *http.Request, s SessionProvider, loc router.Location) {
	from := router.Parse(r.URL.Path, r.URL.Query())
	target := router.Navigate(from, loc, s.IsAuthenticated())
	http.Redirect(w, r, router.Path(target), http.StatusSeeOther)
}
