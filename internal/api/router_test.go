package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/isdelr/blog-client/internal/api/handlers"
	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/apitest"
	"github.com/isdelr/blog-client/internal/config"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/session"
	"github.com/isdelr/blog-client/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	srv     *apitest.Server
	client  *apiclient.Client
	session *session.Controller
	handler http.Handler
	browser string // id cookie sent with every request
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	store := tokenstore.NewMemoryStore()
	client := apiclient.New(srv.APIURL(), store)
	sess, err := session.New(context.Background(), client, store)
	require.NoError(t, err)

	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}, PostPageSize: 10}
	h, err := NewRouter(cfg, client, sess)
	require.NoError(t, err)
	return &testApp{srv: srv, client: client, session: sess, handler: h, browser: "browser-1"}
}

// signIn walks the magic-link flow for u on the app's session.
func (a *testApp) signIn(t *testing.T, u models.User) {
	t.Helper()
	ctx := context.Background()
	_, err := a.session.Login(ctx, u.Email)
	require.NoError(t, err)
	link, ok := a.srv.MagicLinkFor(u.Email)
	require.True(t, ok)
	require.NoError(t, a.session.VerifyMagicLink(ctx, link))
}

// do sends req as a same-origin request from the app's browser.
func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: handlers.BrowserCookie, Value: a.browser})
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(target string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func newFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (a *testApp) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return a.do(newFormRequest(target, form))
}

func TestHomeListsVisiblePosts(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com", FirstName: "Ada", LastName: "Lovelace"})
	published := app.srv.AddPost(models.Post{Title: "Engines", Content: "Analytical", AuthorID: author.ID})
	app.srv.AddPost(models.Post{Title: "Secret notes", Content: "x", AuthorID: author.ID, Status: models.StatusDraft})

	w := app.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Engines")
	assert.Contains(t, body, "Ada Lovelace")
	assert.NotContains(t, body, "Secret notes")
	assert.Contains(t, body, `href="/posts/`)

	w = app.get("/?search=engines")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `/posts/`+itoa(published.ID)+`?search=engines`, "detail links carry the search")
	req, _ := app.srv.LastRequest(http.MethodGet, "/posts")
	assert.Equal(t, "engines", req.Query.Get("search"))

	app.signIn(t, author)
	assert.Contains(t, app.get("/").Body.String(), "Secret notes")
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)
	for _, target := range []string{"/posts/create", "/posts/1/edit", "/profile"} {
		w := app.get(target)
		assert.Equal(t, http.StatusSeeOther, w.Code, target)
		assert.Equal(t, "/login", w.Header().Get("Location"), target)
	}
	w := app.postForm("/profile/picture", nil)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	app := newTestApp(t)
	w := app.get("/does/not/exist")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestMagicLinkSignIn(t *testing.T) {
	app := newTestApp(t)
	app.srv.AddUser(models.User{Email: "reader@example.com", Username: "reader"})

	w := app.postForm("/login", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a valid email address")

	w = app.postForm("/login", url.Values{"email": {"reader@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "We sent a sign-in link")
	assert.False(t, app.session.IsAuthenticated())

	link, _ := app.srv.MagicLinkFor("reader@example.com")
	w = app.get("/auth/verify?token=" + url.QueryEscape(link))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="`+link+`"`)
	assert.False(t, app.session.IsAuthenticated(), "following the link alone does not sign in")

	w = app.postForm("/auth/verify", url.Values{"token": {"bogus"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired magic link")

	w = app.postForm("/auth/verify", url.Values{"token": {link}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.True(t, app.session.IsAuthenticated())

	w = app.get("/profile")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="reader"`)
	assert.Contains(t, w.Body.String(), "Session valid until")

	w = app.postForm("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.False(t, app.session.IsAuthenticated())
}

func TestRegisterSendsMagicLink(t *testing.T) {
	app := newTestApp(t)
	w := app.postForm("/register", url.Values{"username": {"new"}, "firstName": {"New"}, "lastName": {"User"}, "email": {"new@example.com"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.get("/login")
	assert.Contains(t, w.Body.String(), "new@example.com")

	w = app.postForm("/register", url.Values{"username": {"new"}, "firstName": {"New"}, "lastName": {"User"}, "email": {"new@example.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Email is already registered")
}

func TestCreateEditDeletePost(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com"})
	app.signIn(t, author)

	w := app.postForm("/posts/create", url.Values{"title": {""}, "content": {"Body"}, "action": {"publish"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Title is required")

	w = app.postForm("/posts/create", url.Values{"title": {"Hi"}, "content": {"Body"}, "action": {"draft"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/posts/"))

	w = app.get(location)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hi")
	assert.Contains(t, w.Body.String(), "Draft")

	w = app.get(location + "/edit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Hi"`)

	w = app.postForm(location+"/edit", url.Values{"title": {"Hello"}, "content": {"Body"}, "action": {"publish"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, location, w.Header().Get("Location"))

	w = app.postForm(location+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestDraftDetailForbiddenForVisitors(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com"})
	draft := app.srv.AddPost(models.Post{Title: "Draft", Content: "x", AuthorID: author.ID, Status: models.StatusDraft})

	w := app.get("/posts/" + itoa(draft.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You are not authorized to view this draft")

	w = app.postForm("/posts/"+itoa(draft.ID)+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, exists := app.srv.Post(draft.ID)
	assert.True(t, exists)
}

func TestClapRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com"})
	post := app.srv.AddPost(models.Post{Title: "Clap me", Content: "x", AuthorID: author.ID})

	w := app.postForm("/posts/"+itoa(post.ID)+"/clap", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Please log in to clap for a post")

	app.signIn(t, author)
	w = app.postForm("/posts/"+itoa(post.ID)+"/clap", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	stored, _ := app.srv.Post(post.ID)
	assert.Equal(t, 1, stored.ClapsCount)
}

func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestEditorImageUploadAndProxy(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com"})
	app.signIn(t, author)

	body, ct := multipartBody(t, map[string]string{"title": "Pic", "content": "Body", "action": "upload"}, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/posts/create", body)
	req.Header.Set("Content-Type", ct)
	w := app.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please select a valid image file (JPEG, PNG, GIF, or WebP)")

	body, ct = multipartBody(t, map[string]string{"title": "Pic", "content": "Body", "action": "publish"}, "cover.png", "image/png", []byte("png-data"))
	req = httptest.NewRequest(http.MethodPost, "/posts/create", body)
	req.Header.Set("Content-Type", ct)
	w = app.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = app.get(w.Header().Get("Location"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `src="/images/1/file"`)

	w = app.get("/images/1/file")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-data", w.Body.String())
}

func TestProfileUpdateAndPicture(t *testing.T) {
	app := newTestApp(t)
	u := app.srv.AddUser(models.User{Email: "me@example.com", Username: "me"})
	app.signIn(t, u)

	w := app.postForm("/profile", url.Values{"username": {"me"}, "email": {"me@example.com"}, "bio": {"Hello there"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Profile updated")
	assert.Equal(t, "Hello there", app.session.User().Bio)

	body, ct := multipartBody(t, nil, "me.jpg", "image/jpeg", []byte("jpg"))
	req := httptest.NewRequest(http.MethodPost, "/profile/picture", body)
	req.Header.Set("Content-Type", ct)
	w = app.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile", w.Header().Get("Location"))
	assert.NotEmpty(t, app.session.User().ProfilePictureURL)

	w = app.postForm("/profile/picture", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please select an image to upload")
}

func TestCrossSiteWritesAreRejected(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com"})
	post := app.srv.AddPost(models.Post{Title: "Keep me", Content: "x", AuthorID: author.ID})
	app.signIn(t, author)
	require.Equal(t, http.StatusOK, app.get("/").Code)
	target := "/posts/" + itoa(post.ID) + "/delete"

	req := newFormRequest(target, nil)
	req.Header.Set("Origin", "https://evil.example")
	req.RemoteAddr = "203.0.113.9:4000"
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "no cookie, foreign origin")

	req = newFormRequest(target, nil)
	req.AddCookie(&http.Cookie{Name: handlers.BrowserCookie, Value: app.browser})
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	w = httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "cross-site fetch")

	req = newFormRequest(target, nil)
	req.AddCookie(&http.Cookie{Name: handlers.BrowserCookie, Value: app.browser})
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "foreign origin")

	req = newFormRequest("/auth/verify", url.Values{"token": {"attacker-link"}})
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	w = httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "login from another site")

	_, exists := app.srv.Post(post.ID)
	assert.True(t, exists)
	assert.True(t, app.session.IsAuthenticated())
}

func TestSessionBelongsToSigningBrowser(t *testing.T) {
	app := newTestApp(t)
	author := app.srv.AddUser(models.User{Email: "author@example.com", Username: "author"})
	post := app.srv.AddPost(models.Post{Title: "Mine", Content: "x", AuthorID: author.ID})
	app.srv.AddPost(models.Post{Title: "Unfinished", Content: "x", AuthorID: author.ID, Status: models.StatusDraft})

	_, err := app.session.Login(context.Background(), author.Email)
	require.NoError(t, err)
	link, _ := app.srv.MagicLinkFor(author.Email)
	require.Equal(t, http.StatusSeeOther, app.postForm("/auth/verify", url.Values{"token": {link}}).Code)

	other := &testApp{srv: app.srv, session: app.session, handler: app.handler, browser: "browser-2"}
	w := other.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Unfinished")

	w = other.get("/profile")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = other.postForm("/posts/"+itoa(post.ID)+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, exists := app.srv.Post(post.ID)
	assert.True(t, exists)

	other.postForm("/logout", nil)
	assert.True(t, app.session.IsAuthenticated(), "another browser cannot sign the owner out")

	w = app.get("/")
	assert.Contains(t, w.Body.String(), "Unfinished")
}

func TestNewBrowserGetsIDCookie(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, handlers.BrowserCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
}
