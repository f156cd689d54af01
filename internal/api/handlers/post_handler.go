package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
	"github.com/isdelr/blog-client/internal/views"
	"github.com/rs/zerolog/log"
)

// PostHandler serves the post list, post pages and the editor.
type PostHandler struct {
	posts    views.PostsAPI
	images   ImageProvider
	sessions *Browsers
	render   *Renderer
	pageSize int
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts views.PostsAPI, images ImageProvider, sessions *Browsers, render *Renderer, pageSize int) *PostHandler {
	return &PostHandler{posts: posts, images: images, sessions: sessions, render: render, pageSize: pageSize}
}

type postCard struct {
	Post models.Post
	Link string
}

type listView struct {
	Search string
	Page   models.PostPage
	Cards  []postCard
}

type detailView struct {
	Loaded  bool
	Post    models.Post
	CanEdit bool
	Back    string
}

// List renders the home page.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := views.Query{Search: query.Get("search")}
	q.Page, _ = strconv.Atoi(query.Get("page"))

	v := views.NewPostList(h.posts, h.sessions.For(r), h.pageSize)
	data := newPage(r, h.sessions.For(r), router.PageHome.Title())
	err := v.Load(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Str("search", q.Search).Int("page", q.Page).Msg("Failed to list posts")
		data.Error = err
	}

	from := v.Location()
	page := v.Posts.Value()
	cards := make([]postCard, 0, len(page.Content))
	for _, p := range page.Content {
		to := router.Navigate(from, router.Post(p.ID), h.sessions.For(r).IsAuthenticated())
		cards = append(cards, postCard{Post: p, Link: router.Path(to)})
	}
	data.View = listView{Search: v.Query.Search, Page: page, Cards: cards}
	h.render.Render(w, statusFor(err), "list", data)
}

func (h *PostHandler) renderDetail(w http.ResponseWriter, r *http.Request, v *views.PostDetail, err error) {
	data := newPage(r, h.sessions.For(r), router.PagePost.Title())
	data.Error = err
	view := detailView{
		Loaded: v.Post.Phase() == views.PhaseSuccess,
		Back:   router.Path(router.Location{Page: router.PageHome, Search: data.Current.Search}),
	}
	if view.Loaded {
		view.Post = v.Post.Value()
		view.CanEdit = v.CanEdit()
		data.Title = view.Post.Title
	}
	data.View = view
	h.render.Render(w, statusFor(err), "post", data)
}

// Show renders a single post.
func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, h.sessions.For(r), router.Home)
		return
	}
	v := views.NewPostDetail(h.posts, h.sessions.For(r))
	err := v.Load(r.Context(), id)
	if err != nil && !apiclient.IsUnauthorized(err) {
		log.Error().Err(err).Int64("post_id", id).Msg("Failed to load post")
	}
	h.renderDetail(w, r, v, err)
}

// Delete removes a post, then returns to the list.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, h.sessions.For(r), router.Home)
		return
	}
	v := views.NewPostDetail(h.posts, h.sessions.For(r))
	if err := v.Load(r.Context(), id); err != nil {
		h.renderDetail(w, r, v, err)
		return
	}
	next, err := v.Delete(r.Context())
	if err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("Failed to delete post")
		h.renderDetail(w, r, v, err)
		return
	}
	log.Info().Int64("post_id", id).Msg("Post deleted")
	redirect(w, r, h.sessions.For(r), next)
}

// Clap records a clap and returns to the post.
func (h *PostHandler) Clap(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, h.sessions.For(r), router.Home)
		return
	}
	v := views.NewPostDetail(h.posts, h.sessions.For(r))
	if err := v.Load(r.Context(), id); err != nil {
		h.renderDetail(w, r, v, err)
		return
	}
	if err := v.Clap(r.Context()); err != nil {
		h.renderDetail(w, r, v, err)
		return
	}
	redirect(w, r, h.sessions.For(r), router.Post(id))
}

func (h *PostHandler) renderEditor(w http.ResponseWriter, r *http.Request, v *views.PostEditor, notice string, err error) {
	data := newPage(r, h.sessions.For(r), v.Location().Page.Title())
	data.Notice = notice
	data.Error = err
	data.View = v
	h.render.Render(w, statusFor(err), "editor", data)
}

// New renders an empty editor.
func (h *PostHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderEditor(w, r, views.NewPostEditor(h.posts, h.sessions.For(r)), "", nil)
}

// Create handles the new-post form.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, views.NewPostEditor(h.posts, h.sessions.For(r)))
}

// Edit renders the editor for an existing post.
func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadEditor(w, r)
	if !ok {
		return
	}
	h.renderEditor(w, r, v, "", nil)
}

// Update handles the edit form.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadEditor(w, r)
	if !ok {
		return
	}
	h.submit(w, r, v)
}

// loadEditor loads the post being edited. Failures render the post page
// with the error instead of an editor.
func (h *PostHandler) loadEditor(w http.ResponseWriter, r *http.Request) (*views.PostEditor, bool) {
	id, ok := idParam(r)
	if !ok {
		redirect(w, r, h.sessions.For(r), router.Home)
		return nil, false
	}
	v := views.NewPostEditor(h.posts, h.sessions.For(r))
	if err := v.Load(r.Context(), id); err != nil {
		log.Warn().Err(err).Int64("post_id", id).Msg("Cannot edit post")
		h.renderDetail(w, r, views.NewPostDetail(h.posts, h.sessions.For(r)), err)
		return nil, false
	}
	return v, true
}

func (h *PostHandler) submit(w http.ResponseWriter, r *http.Request, v *views.PostEditor) {
	if err := r.ParseMultipartForm(views.MaxImageSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderEditor(w, r, v, "", apiclient.Validation("Could not read the form"))
		return
	}

	v.Form.Title = r.FormValue("title")
	v.Form.Content = r.FormValue("content")
	v.Form.ImageURL = strings.TrimSpace(r.FormValue("imageUrl"))
	v.Form.ImageID = nil
	if id, err := strconv.ParseInt(r.FormValue("imageId"), 10, 64); err == nil {
		v.Form.ImageID = &id
	}
	if r.FormValue("removeImage") != "" {
		v.RemoveImage()
	}

	notice := ""
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		upload := views.ImageFile{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
			AltText:     r.FormValue("altText"),
			Description: r.FormValue("description"),
		}
		if err := v.UploadImage(r.Context(), upload); err != nil {
			log.Warn().Err(err).Str("file", header.Filename).Msg("Image upload rejected")
			h.renderEditor(w, r, v, "", err)
			return
		}
		notice = "Image uploaded"
	}

	action := r.FormValue("action")
	if action == "upload" {
		h.renderEditor(w, r, v, notice, nil)
		return
	}
	status := models.StatusDraft
	if action == "publish" {
		status = models.StatusPublished
	}

	next, err := v.Save(r.Context(), status)
	if err != nil {
		if apiclient.KindOf(err) != apiclient.KindValidation {
			log.Error().Err(err).Int64("post_id", v.PostID).Msg("Failed to save post")
		}
		h.renderEditor(w, r, v, notice, err)
		return
	}
	log.Info().Int64("post_id", next.PostID).Str("status", string(status)).Msg("Post saved")
	redirect(w, r, h.sessions.For(r), next)
}

// ImageFile proxies an image binary from the API.
func (h *PostHandler) ImageFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	img, err := h.images.GetImageFile(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Int64("image_id", id).Msg("Failed to fetch image")
		http.Error(w, apiclient.Message(err), statusFor(err))
		return
	}
	if img.ContentType != "" {
		w.Header().Set("Content-Type", img.ContentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(img.Data)
}
