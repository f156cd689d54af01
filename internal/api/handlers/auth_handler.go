package handlers

import (
	"net/http"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/isdelr/blog-client/internal/views"
	"github.com/rs/zerolog/log"
)

// AuthHandler serves sign-in, magic-link verification, registration and logout.
type AuthHandler struct {
	sessions *Browsers
	render   *Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *Browsers, render *Renderer) *AuthHandler {
	return &AuthHandler{sessions: sessions, render: render}
}

type loginView struct {
	Email string
	Sent  bool
	Token string // magic-link token awaiting confirmation
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, v *views.Login, notice string, err error) {
	data := newPage(r, h.sessions.For(r), router.PageLogin.Title())
	data.Notice = notice
	data.Error = err
	data.View = loginView{Email: v.Email, Sent: v.MagicLinkSent()}
	h.render.Render(w, statusFor(err), "login", data)
}

// LoginForm renders the sign-in page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.For(r)
	if s.IsAuthenticated() {
		redirect(w, r, s, router.Home)
		return
	}
	h.renderLogin(w, r, views.NewLogin(s), "", nil)
}

// Login requests a magic link.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	v := views.NewLogin(h.sessions.For(r))
	if err := v.Submit(r.Context(), r.FormValue("email")); err != nil {
		if apiclient.KindOf(err) != apiclient.KindValidation {
			log.Warn().Err(err).Str("email", v.Email).Msg("Magic link request failed")
		}
		h.renderLogin(w, r, v, "", err)
		return
	}
	h.renderLogin(w, r, v, v.Request.Value(), nil)
}

// ConfirmVerify shows the sign-in button for a magic link. Following the
// link alone never signs the browser in.
func (h *AuthHandler) ConfirmVerify(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.For(r)
	data := newPage(r, s, router.PageLogin.Title())
	data.View = loginView{Email: s.Snapshot().Email, Token: r.URL.Query().Get("token")}
	h.render.Render(w, http.StatusOK, "login", data)
}

// Verify exchanges the token of a magic link for a session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v := views.NewLogin(h.sessions.For(r))
	next, err := v.VerifyToken(r.Context(), r.FormValue("token"))
	if err != nil {
		log.Warn().Err(err).Msg("Magic link verification failed")
		h.renderLogin(w, r, v, "", err)
		return
	}
	redirect(w, r, h.sessions.For(r), next)
}

// Logout ends the session locally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.For(r).Logout(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear session token")
	}
	redirect(w, r, h.sessions.For(r), router.Home)
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, form models.RegisterInput, err error) {
	data := newPage(r, h.sessions.For(r), router.PageRegister.Title())
	data.Error = err
	data.View = form
	h.render.Render(w, statusFor(err), "register", data)
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.For(r)
	if s.IsAuthenticated() {
		redirect(w, r, s, router.Home)
		return
	}
	h.renderRegister(w, r, models.RegisterInput{}, nil)
}

// Register creates an account and sends its first magic link.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	v := views.NewRegister(h.sessions.For(r))
	v.Form = models.RegisterInput{
		Username:  r.FormValue("username"),
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Email:     r.FormValue("email"),
	}
	next, err := v.Save(r.Context())
	if err != nil {
		if apiclient.KindOf(err) != apiclient.KindValidation {
			log.Error().Err(err).Str("email", v.Form.Email).Msg("Failed to register user")
		}
		h.renderRegister(w, r, v.Form, err)
		return
	}
	redirect(w, r, h.sessions.For(r), next)
}
