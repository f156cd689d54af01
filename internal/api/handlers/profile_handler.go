package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/isdelr/blog-client/internal/views"
	"github.com/rs/zerolog/log"
)

// ProfileHandler serves the profile page.
type ProfileHandler struct {
	sessions *Browsers
	profiles views.ProfileAPI
	render   *Renderer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(sessions *Browsers, profiles views.ProfileAPI, render *Renderer) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, profiles: profiles, render: render}
}

type profileView struct {
	Form    models.ProfileInput
	Picture *models.Image
	Role    models.Role
	Expires string
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, v *views.Profile, notice string, err error) {
	data := newPage(r, h.sessions.For(r), router.PageProfile.Title())
	data.Notice = notice
	data.Error = err
	view := profileView{Form: v.Form}
	if v.Picture.Phase() == views.PhaseSuccess {
		img := v.Picture.Value()
		view.Picture = &img
	}
	if u := h.sessions.For(r).User(); u != nil {
		view.Role = u.Role
	}
	if !v.TokenExpiry.IsZero() {
		view.Expires = v.TokenExpiry.Local().Format("Jan 2, 2006 15:04")
	}
	data.View = view
	h.render.Render(w, statusFor(err), "profile", data)
}

func (h *ProfileHandler) load(r *http.Request) (*views.Profile, error) {
	v := views.NewProfile(h.sessions.For(r), h.profiles)
	if err := v.Load(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Failed to load profile picture")
		return v, err
	}
	return v, nil
}

// Show renders the profile page.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r)
	h.renderProfile(w, r, v, "", err)
}

// Update saves the profile form.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	v, _ := h.load(r)
	v.Form = models.ProfileInput{
		Username:  r.FormValue("username"),
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Email:     r.FormValue("email"),
		Bio:       r.FormValue("bio"),
		Website:   r.FormValue("website"),
	}
	if err := v.Save(r.Context()); err != nil {
		if apiclient.KindOf(err) != apiclient.KindValidation {
			log.Error().Err(err).Msg("Failed to update profile")
		}
		h.renderProfile(w, r, v, "", err)
		return
	}
	h.renderProfile(w, r, v, "Profile updated", nil)
}

// UploadPicture replaces the profile picture.
func (h *ProfileHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(views.MaxImageSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		v, _ := h.load(r)
		h.renderProfile(w, r, v, "", apiclient.Validation("Could not read the form"))
		return
	}
	upload := views.ImageFile{AltText: r.FormValue("altText"), Description: r.FormValue("description")}
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		upload.FileName = header.Filename
		upload.ContentType = header.Header.Get("Content-Type")
		upload.Size = header.Size
		upload.Body = file
	}

	v := views.NewProfile(h.sessions.For(r), h.profiles)
	if err := v.UploadPicture(r.Context(), upload); err != nil {
		log.Warn().Err(err).Msg("Profile picture upload failed")
		loaded, _ := h.load(r)
		h.renderProfile(w, r, loaded, "", err)
		return
	}
	redirect(w, r, h.sessions.For(r), router.Location{Page: router.PageProfile})
}
