// Package router maps page selectors to URL paths and back, and applies the
// navigation rules shared by every page: auth guards and the search term.
package router

import (
	"net/url"
	"strconv"
	"strings"
)

// Page selects the active page view.
type Page string

const (
	PageHome       Page = "home"
	PagePost       Page = "post"
	PageCreatePost Page = "createPost"
	PageEditPost   Page = "editPost"
	PageLogin      Page = "login"
	PageRegister   Page = "register"
	PageProfile    Page = "profile"
)

// Protected reports whether the page requires a signed-in user.
func (p Page) Protected() bool {
	switch p {
	case PageCreatePost, PageEditPost, PageProfile:
		return true
	}
	return false
}

// Searchable reports whether the page keeps an active search term.
func (p Page) Searchable() bool {
	return p == PageHome || p == PagePost
}

// Location is a page plus its parameters.
type Location struct {
	Page   Page
	PostID int64
	Search string
}

// Home is the post list without a search.
var Home = Location{Page: PageHome}

// Post returns the detail location of post id.
func Post(id int64) Location {
	return Location{Page: PagePost, PostID: id}
}

// Path renders loc as a URL path with query.
func Path(loc Location) string {
	var p string
	switch loc.Page {
	case PagePost:
		p = "/posts/" + strconv.FormatInt(loc.PostID, 10)
	case PageCreatePost:
		p = "/posts/create"
	case PageEditPost:
		p = "/posts/" + strconv.FormatInt(loc.PostID, 10) + "/edit"
	case PageLogin:
		p = "/login"
	case PageRegister:
		p = "/register"
	case PageProfile:
		p = "/profile"
	default:
		p = "/"
	}
	if loc.Page.Searchable() && loc.Search != "" {
		p += "?" + url.Values{"search": {loc.Search}}.Encode()
	}
	return p
}

// Parse resolves a URL path and query. Unknown paths resolve to home.
func Parse(path string, query url.Values) Location {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	search := strings.TrimSpace(query.Get("search"))

	var loc Location
	switch {
	case len(segments) == 0:
		loc = Location{Page: PageHome}
	case len(segments) == 1 && segments[0] == "login":
		loc = Location{Page: PageLogin}
	case len(segments) == 1 && segments[0] == "register":
		loc = Location{Page: PageRegister}
	case len(segments) == 1 && segments[0] == "profile":
		loc = Location{Page: PageProfile}
	case len(segments) == 2 && segments[0] == "posts" && segments[1] == "create":
		loc = Location{Page: PageCreatePost}
	case len(segments) >= 2 && segments[0] == "posts":
		id, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil || id <= 0 {
			return Home
		}
		switch {
		case len(segments) == 2:
			loc = Post(id)
		case len(segments) == 3 && segments[2] == "edit":
			loc = Location{Page: PageEditPost, PostID: id}
		default:
			return Home
		}
	default:
		return Home
	}
	if loc.Page.Searchable() {
		loc.Search = search
	}
	return loc
}

// Navigate computes where a request to go from -> to actually lands.
// Protected pages resolve to login when unauthenticated. The search term is
// dropped on non-searchable pages, and a post opened from a searchable page
// keeps that page's search so the way back restores the filtered list.
func Navigate(from, to Location, authenticated bool) Location {
	if to.Page.Protected() && !authenticated {
		return Location{Page: PageLogin}
	}
	if !to.Page.Searchable() {
		to.Search = ""
		return to
	}
	if to.Page == PagePost && to.Search == "" && from.Page.Searchable() {
		to.Search = from.Search
	}
	return to
}

// Title is the human label of a page.
func (p Page) Title() string {
	switch p {
	case PagePost:
		return "Post"
	case PageCreatePost:
		return "New post"
	case PageEditPost:
		return "Edit post"
	case PageLogin:
		return "Sign in"
	case PageRegister:
		return "Create account"
	case PageProfile:
		return "Profile"
	}
	return "Posts"
}
