package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/isdelr/blog-client/internal/session"
	"github.com/isdelr/blog-client/internal/views"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData is what every template receives.
type PageData struct {
	Title   string
	Session session.State
	Current router.Location
	Notice  string
	Error   error
	View    any
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"path":     router.Path,
	"postPath": func(id int64) string { return router.Path(router.Post(id)) },
	"editPath": func(id int64) string { return router.Path(router.Location{Page: router.PageEditPost, PostID: id}) },
	"listPath": listPath,
	"message":  apiclient.Message,
	"excerpt":  func(p models.Post) string { return p.Excerpt(200) },
	"date":     func(t *models.Timestamp) string { return t.Display() },
	"imageSrc": imageSrc,
	"add":      func(a, b int) int { return a + b },
	"maxImageMB": func() int {
		return views.MaxImageSize >> 20
	},
}

// NewRenderer parses every page template once.
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template)
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, err
		}
		pages[strings.TrimSuffix(base, ".html")] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page with status. Templates execute into a buffer so a
// failure never leaves a half-written page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	t, ok := rd.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// statusFor maps an error to the status of the page that shows it.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, views.ErrBusy) {
		return http.StatusConflict
	}
	switch apiclient.KindOf(err) {
	case apiclient.KindValidation:
		return http.StatusUnprocessableEntity
	case apiclient.KindUnauthorized:
		return http.StatusForbidden
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindNetwork, apiclient.KindHTTP, apiclient.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func listPath(search string, page int) string {
	p := router.Path(router.Location{Page: router.PageHome, Search: search})
	if page <= 0 {
		return p
	}
	sep := "?"
	if strings.Contains(p, "?") {
		sep = "&"
	}
	return p + sep + "page=" + strconv.Itoa(page)
}

// imageSrc returns a browser-loadable URL for the post's featured image.
// Uploaded images are served through this app's proxy.
func imageSrc(p models.Post) string {
	if p.ImageID != nil {
		return "/images/" + strconv.FormatInt(*p.ImageID, 10) + "/file"
	}
	if strings.HasPrefix(p.ImageURL, "http://") || strings.HasPrefix(p.ImageURL, "https://") {
		return p.ImageURL
	}
	return ""
}
