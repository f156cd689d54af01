// Package apitest is an in-memory stand-in for the blog API, used to
// exercise the client end to end in tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/isdelr/blog-client/internal/auth"
	"github.com/isdelr/blog-client/internal/models"
)

// RecordedRequest is what the backend saw of one incoming request.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	RequestID     string
}

type storedImage struct {
	meta models.Image
	data []byte
}

// Backend holds the fake API's state.
type Backend struct {
	mu          sync.Mutex
	secret      []byte
	users       map[int64]*models.User
	posts       map[int64]*models.Post
	images      map[int64]*storedImage
	magicLinks  map[string]string // token -> email
	lastLink    map[string]string // email -> token
	requests    []RecordedRequest
	nextUserID  int64
	nextPostID  int64
	nextImageID int64
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		secret:     []byte(uuid.New().String()),
		users:      make(map[int64]*models.User),
		posts:      make(map[int64]*models.Post),
		images:     make(map[int64]*storedImage),
		magicLinks: make(map[string]string),
		lastLink:   make(map[string]string),
	}
}

// Server is a running Backend.
type Server struct {
	*httptest.Server
	*Backend
}

// NewServer starts a Backend on a loopback listener. The caller closes it.
func NewServer() *Server {
	b := NewBackend()
	return &Server{Server: httptest.NewServer(b.Handler()), Backend: b}
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api/v1"
}

// Handler returns the HTTP API rooted at /api/v1.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.record)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(b.secret))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", b.login)
			r.Get("/verify-magic-link", b.verifyMagicLink)
			r.Post("/register", b.register)
			r.Get("/me", b.me)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", b.listPosts)
			r.Post("/", b.createPost)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", b.getPost)
				r.Put("/", b.updatePost)
				r.Delete("/", b.deletePost)
				r.Post("/clap", b.clapPost)
			})
		})

		r.Route("/images", func(r chi.Router) {
			r.Post("/upload", b.uploadImage)
			r.Post("/profile-picture", b.uploadProfilePicture)
			r.Get("/profile/{userId}", b.profilePicture)
			r.Get("/{id}", b.getImage)
			r.Get("/{id}/file", b.getImageFile)
		})

		r.Put("/users/profile", b.updateProfile)
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api/v1"),
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request for method and path.
func (b *Backend) LastRequest(method, path string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if r := b.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return RecordedRequest{}, false
}

// AddUser stores u with a fresh id and returns it.
func (b *Backend) AddUser(u models.User) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.addUserLocked(u)
}

func (b *Backend) addUserLocked(u models.User) *models.User {
	b.nextUserID++
	u.ID = b.nextUserID
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	b.users[u.ID] = &u
	return &u
}

// AddPost stores p with a fresh id and returns it.
func (b *Backend) AddPost(p models.Post) models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextPostID++
	p.ID = b.nextPostID
	if p.Status == "" {
		p.Status = models.StatusPublished
	}
	if author, ok := b.users[p.AuthorID]; ok && p.AuthorName == "" {
		p.AuthorName = author.DisplayName()
	}
	if p.Status == models.StatusPublished && p.PublishedAt == nil {
		p.PublishedAt = &models.Timestamp{Time: time.Now().UTC()}
	}
	b.posts[p.ID] = &p
	return p
}

// Post returns the stored post with id.
func (b *Backend) Post(id int64) (models.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return models.Post{}, false
	}
	return *p, true
}

// TokenFor signs a bearer token for the user with id.
func (b *Backend) TokenFor(id int64) string {
	b.mu.Lock()
	u := *b.users[id]
	b.mu.Unlock()
	token, err := auth.Sign(b.secret, auth.Claims{UserID: u.ID, Email: u.Email, Role: string(u.Role)}, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// MagicLinkFor returns the last magic-link token "emailed" to email.
func (b *Backend) MagicLinkFor(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	token, ok := b.lastLink[strings.ToLower(email)]
	return token, ok
}

func (b *Backend) userByEmailLocked(email string) *models.User {
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// viewer returns the authenticated user of r, if any.
func (b *Backend) viewer(r *http.Request) *models.User {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[claims.UserID]
	if !ok {
		return nil
	}
	copied := *u
	return &copied
}

func (b *Backend) visiblePostsLocked(viewer *models.User, search string) []models.Post {
	var out []models.Post
	for _, p := range b.posts {
		if p.VisibleTo(viewer) && p.Matches(search) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
