package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/isdelr/blog-client/internal/models"
)

// ListPostsParams selects one page of the listing.
type ListPostsParams struct {
	Page   int
	Size   int
	Search string
}

func (p ListPostsParams) values() url.Values {
	size := p.Size
	if size <= 0 {
		size = 10
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	v := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		v.Set("search", search)
	}
	return v
}

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}

// ListPosts fetches a page of posts.
func (c *Client) ListPosts(ctx context.Context, p ListPostsParams) (models.PostPage, error) {
	var page models.PostPage
	err := c.doJSON(ctx, call{op: "list posts", method: http.MethodGet, path: "/posts", query: p.values()}, &page)
	return page, err
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id int64) (models.Post, error) {
	var post models.Post
	err := c.doJSON(ctx, call{op: "fetch post", method: http.MethodGet, path: postPath(id)}, &post)
	return post, err
}

// CreatePost creates a post owned by the authenticated user.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput) (models.Post, error) {
	return c.writePost(ctx, "create post", http.MethodPost, "/posts", in)
}

// UpdatePost replaces the editable fields of a post.
func (c *Client) UpdatePost(ctx context.Context, id int64, in models.PostInput) (models.Post, error) {
	return c.writePost(ctx, "update post", http.MethodPut, postPath(id), in)
}

func (c *Client) writePost(ctx context.Context, op, method, path string, in models.PostInput) (models.Post, error) {
	body, err := jsonBody(in)
	if err != nil {
		return models.Post{}, err
	}
	var post models.Post
	err = c.doJSON(ctx, call{op: op, method: method, path: path, body: body, contentType: "application/json"}, &post)
	return post, err
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.doJSON(ctx, call{op: "delete post", method: http.MethodDelete, path: postPath(id)}, nil)
}

// ClapPost records a clap from the authenticated user.
func (c *Client) ClapPost(ctx context.Context, id int64) error {
	return c.doJSON(ctx, call{op: "clap post", method: http.MethodPost, path: postPath(id) + "/clap"}, nil)
}
