package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/session"
	"github.com/isdelr/blog-client/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRendererParsesEveryPage(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)
	for _, page := range []string{"list", "post", "editor", "login", "register", "profile"} {
		assert.Contains(t, rd.pages, page)
	}
	assert.NotContains(t, rd.pages, "layout")
}

func TestRenderUnknownPage(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	rd.Render(w, http.StatusOK, "missing", PageData{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRenderEscapesContent(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	rd.Render(w, http.StatusOK, "post", PageData{
		Title:   "x",
		Session: session.State{Status: session.StatusUnauthenticated},
		View: detailView{
			Loaded: true,
			Post:   models.Post{ID: 1, Title: "<script>alert(1)</script>", Status: models.StatusPublished},
			Back:   "/",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{views.ErrBusy, http.StatusConflict},
		{apiclient.Validation("x"), http.StatusUnprocessableEntity},
		{apiclient.Unauthorized("x"), http.StatusForbidden},
		{&apiclient.Error{Kind: apiclient.KindNotFound}, http.StatusNotFound},
		{&apiclient.Error{Kind: apiclient.KindNetwork}, http.StatusBadGateway},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestListPath(t *testing.T) {
	assert.Equal(t, "/", listPath("", 0))
	assert.Equal(t, "/?page=2", listPath("", 2))
	assert.Equal(t, "/?search=go&page=1", listPath("go", 1))
}

func TestImageSrc(t *testing.T) {
	id := int64(4)
	assert.Equal(t, "/images/4/file", imageSrc(models.Post{ImageID: &id, ImageURL: "/uploads/x.png"}))
	assert.Equal(t, "https://cdn.test/a.png", imageSrc(models.Post{ImageURL: "https://cdn.test/a.png"}))
	assert.Empty(t, imageSrc(models.Post{ImageURL: "/uploads/x.png"}))
}
