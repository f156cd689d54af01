package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/blog-client/internal/api/handlers"
	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/config"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the chi router serving the client's pages.
func NewRouter(cfg *config.Config, client *apiclient.Client, session handlers.SessionProvider) (*chi.Mux, error) {
	render, err := handlers.NewRenderer()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The session belongs to the browser that signed in
	browsers := handlers.NewBrowsers(session)
	r.Use(browsers.Identify)
	r.Use(browsers.SameOrigin)

	// Initialize handlers
	postHandler := handlers.NewPostHandler(client, client, browsers, render, cfg.PostPageSize)
	authHandler := handlers.NewAuthHandler(browsers, render)
	profileHandler := handlers.NewProfileHandler(browsers, client, render)

	r.Get("/", postHandler.List)

	r.Route("/posts", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireAuth(browsers))
			r.Get("/create", postHandler.New)
			r.Post("/create", postHandler.Create)
			r.Get("/{id}/edit", postHandler.Edit)
			r.Post("/{id}/edit", postHandler.Update)
		})
		r.Get("/{id}", postHandler.Show)
		r.Post("/{id}/delete", postHandler.Delete)
		r.Post("/{id}/clap", postHandler.Clap)
	})

	r.Get("/images/{id}/file", postHandler.ImageFile)

	r.Get("/login", authHandler.LoginForm)
	r.Post("/login", authHandler.Login)
	r.Get("/auth/verify", authHandler.ConfirmVerify)
	r.Post("/auth/verify", authHandler.Verify)
	r.Post("/logout", authHandler.Logout)
	r.Get("/register", authHandler.RegisterForm)
	r.Post("/register", authHandler.Register)

	r.Route("/profile", func(r chi.Router) {
		r.Use(handlers.RequireAuth(browsers))
		r.Get("/", profileHandler.Show)
		r.Post("/", profileHandler.Update)
		r.Post("/picture", profileHandler.UploadPicture)
	})

	// Unknown paths land on the page they resolve to, which is home unless
	// the path only differs in shape (e.g. a trailing slash).
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, router.Path(router.Parse(req.URL.Path, req.URL.Query())), http.StatusSeeOther)
	})

	return r, nil
}
