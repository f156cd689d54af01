package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PostStatus controls who may read a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "DRAFT"
	StatusPublished PostStatus = "PUBLISHED"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post is a blog post as returned by the API.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Status        PostStatus `json:"status"`
	AuthorID      int64      `json:"authorId"`
	AuthorName    string     `json:"authorName,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	ImageID       *int64     `json:"imageId,omitempty"`
	ClapsCount    int        `json:"clapsCount"`
	CommentsCount int        `json:"commentsCount"`
	PublishedAt   *Timestamp `json:"publishedAt,omitempty"`
	CreatedAt     *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt     *Timestamp `json:"updatedAt,omitempty"`
}

// VisibleTo reports whether viewer may read the post. Drafts are limited to
// their author and staff; published posts are public. A nil viewer is anonymous.
func (p Post) VisibleTo(viewer *User) bool {
	if p.Status != StatusDraft {
		return true
	}
	return p.EditableBy(viewer)
}

// EditableBy reports whether viewer is the author or staff.
func (p Post) EditableBy(viewer *User) bool {
	if viewer == nil {
		return false
	}
	return viewer.IsStaff() || viewer.ID == p.AuthorID
}

// Matches reports whether the title, content or author contain term, ignoring case.
func (p Post) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) ||
		strings.Contains(strings.ToLower(p.AuthorName), term)
}

// Excerpt returns at most n runes of the content.
func (p Post) Excerpt(n int) string {
	r := []rune(p.Content)
	if len(r) <= n {
		return p.Content
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// PostInput is the create/update payload.
type PostInput struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Status   PostStatus `json:"status"`
	ImageURL string     `json:"imageUrl,omitempty"`
	ImageID  *int64     `json:"imageId,omitempty"`
}

// PostPage is one page of the post listing.
type PostPage struct {
	Content       []Post `json:"content"`
	Number        int    `json:"number"`
	Size          int    `json:"size"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
}

// UnmarshalJSON accepts both the paginated object and a bare array of posts.
func (pp *PostPage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var posts []Post
		if err := json.Unmarshal(trimmed, &posts); err != nil {
			return err
		}
		*pp = PostPage{
			Content:       posts,
			Size:          len(posts),
			TotalElements: int64(len(posts)),
			TotalPages:    1,
		}
		return nil
	}
	type page PostPage
	var p page
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*pp = PostPage(p)
	return nil
}

// HasNext reports whether a following page exists.
func (pp PostPage) HasNext() bool {
	return pp.Number+1 < pp.TotalPages
}

// HasPrev reports whether a preceding page exists.
func (pp PostPage) HasPrev() bool {
	return pp.Number > 0
}
