package views

import (
	"context"
	"strings"

	"github.com/isdelr/blog-client/internal/apiclient"
	"github.com/isdelr/blog-client/internal/models"
	"github.com/isdelr/blog-client/internal/router"
)

// Query selects a page of the post list.
type Query struct {
	Page   int
	Search string
}

// PostList is the home page: a searchable, paginated list of posts.
type PostList struct {
	api      PostsAPI
	viewer   Viewer
	pageSize int

	Query Query
	Posts Async[models.PostPage]
}

func NewPostList(api PostsAPI, viewer Viewer, pageSize int) *PostList {
	return &PostList{api: api, viewer: viewer, pageSize: pageSize}
}

// Load fetches the page selected by q. Search is evaluated by the server;
// posts the viewer may not see are dropped here as well.
func (v *PostList) Load(ctx context.Context, q Query) error {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 0 {
		q.Page = 0
	}
	v.Query = q
	_, err := v.Posts.Run(ctx, func(ctx context.Context) (models.PostPage, error) {
		page, err := v.api.ListPosts(ctx, apiclient.ListPostsParams{Page: q.Page, Size: v.pageSize, Search: q.Search})
		if err != nil {
			return page, err
		}
		user := v.viewer.User()
		visible := page.Content[:0]
		for _, p := range page.Content {
			if p.VisibleTo(user) {
				visible = append(visible, p)
			}
		}
		page.Content = visible
		return page, nil
	})
	return err
}

// Location is where this list lives, for links back to it.
func (v *PostList) Location() router.Location {
	return router.Location{Page: router.PageHome, Search: v.Query.Search}
}

// PostDetail shows one post and offers clap, edit and delete.
type PostDetail struct {
	api    PostsAPI
	viewer Viewer

	Post   Async[models.Post]
	Action Async[struct{}]
}

func NewPostDetail(api PostsAPI, viewer Viewer) *PostDetail {
	return &PostDetail{api: api, viewer: viewer}
}

// Load fetches post id. A draft the viewer may not read is an authorization
// failure even if the server returned it.
func (v *PostDetail) Load(ctx context.Context, id int64) error {
	_, err := v.Post.Run(ctx, func(ctx context.Context) (models.Post, error) {
		post, err := v.api.GetPost(ctx, id)
		if err != nil {
			if apiclient.IsUnauthorized(err) {
				return post, apiclient.Unauthorized("You are not authorized to view this draft")
			}
			return post, err
		}
		if !post.VisibleTo(v.viewer.User()) {
			return models.Post{}, apiclient.Unauthorized("You are not authorized to view this draft")
		}
		return post, nil
	})
	return err
}

// CanEdit reports whether the viewer may edit or delete the loaded post.
func (v *PostDetail) CanEdit() bool {
	return v.Post.Phase() == PhaseSuccess && v.Post.Value().EditableBy(v.viewer.User())
}

// Delete removes the loaded post. On success the browser goes to the post
// list; on failure it stays on the post with the error shown.
func (v *PostDetail) Delete(ctx context.Context) (router.Location, error) {
	post := v.Post.Value()
	here := router.Post(post.ID)
	if v.Post.Phase() != PhaseSuccess {
		return here, v.Action.Fail(apiclient.Validation("Post is not loaded"))
	}
	if !post.EditableBy(v.viewer.User()) {
		return here, v.Action.Fail(apiclient.Unauthorized("You are not authorized to delete this post"))
	}
	_, err := v.Action.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.api.DeletePost(ctx, post.ID)
	})
	if err != nil {
		return here, err
	}
	return router.Home, nil
}

// Clap records a clap for the loaded post. Anonymous viewers are asked to log in.
func (v *PostDetail) Clap(ctx context.Context) error {
	if !v.viewer.IsAuthenticated() {
		return v.Action.Fail(apiclient.Unauthorized("Please log in to clap for a post"))
	}
	post := v.Post.Value()
	_, err := v.Action.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.api.ClapPost(ctx, post.ID)
	})
	if err != nil {
		return err
	}
	post.ClapsCount++
	v.Post.Set(post)
	return nil
}
