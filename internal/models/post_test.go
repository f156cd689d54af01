package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostVisibility(t *testing.T) {
	author := &User{ID: 7, Role: RoleUser}
	stranger := &User{ID: 8, Role: RoleUser}
	admin := &User{ID: 1, Role: RoleAdmin}
	moderator := &User{ID: 2, Role: RoleModerator}

	draft := Post{ID: 1, Status: StatusDraft, AuthorID: 7}
	published := Post{ID: 2, Status: StatusPublished, AuthorID: 7}

	tests := []struct {
		name   string
		post   Post
		viewer *User
		want   bool
	}{
		{"draft anonymous", draft, nil, false},
		{"draft stranger", draft, stranger, false},
		{"draft author", draft, author, true},
		{"draft admin", draft, admin, true},
		{"draft moderator", draft, moderator, true},
		{"published anonymous", published, nil, true},
		{"published stranger", published, stranger, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.post.VisibleTo(tt.viewer))
		})
	}
}

func TestPostMatches(t *testing.T) {
	p := Post{Title: "Go Channels", Content: "Buffered and unbuffered", AuthorName: "Rob"}
	assert.True(t, p.Matches(""))
	assert.True(t, p.Matches("channels"))
	assert.True(t, p.Matches("UNBUFFERED"))
	assert.True(t, p.Matches("rob"))
	assert.False(t, p.Matches("rust"))
}

func TestPostPageDecodesArrayAndObject(t *testing.T) {
	var fromArray PostPage
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"title":"a"},{"id":2,"title":"b"}]`), &fromArray))
	assert.Len(t, fromArray.Content, 2)
	assert.Equal(t, 1, fromArray.TotalPages)
	assert.False(t, fromArray.HasNext())

	var fromObject PostPage
	require.NoError(t, json.Unmarshal([]byte(`{"content":[{"id":3}],"number":1,"size":1,"totalElements":3,"totalPages":3}`), &fromObject))
	assert.Equal(t, int64(3), fromObject.Content[0].ID)
	assert.True(t, fromObject.HasNext())
	assert.True(t, fromObject.HasPrev())
}

func TestTimestampFormats(t *testing.T) {
	var p Post
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":"2024-03-05T10:11:12.123456","publishedAt":"2024-03-06T00:00:00Z","updatedAt":null}`), &p))
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, time.March, p.CreatedAt.Month())
	assert.Equal(t, "Mar 6, 2024", p.PublishedAt.Display())
	assert.Nil(t, p.UpdatedAt)

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}.DisplayName())
	assert.Equal(t, "ada", User{Username: "ada"}.DisplayName())
	assert.Equal(t, "ada@example.com", User{Email: "ada@example.com"}.DisplayName())
}

func TestProfileInputSendsEmptiedFields(t *testing.T) {
	data, err := json.Marshal(ProfileInput{FirstName: "Pat"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Pat","bio":"","website":""}`, string(data))
}
