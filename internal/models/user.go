package models

import "strings"

// Role is the server-assigned authorization level of a user.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// User represents a blog account as returned by the API.
// The role is server-authoritative; the client never sends it.
type User struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	Bio               string `json:"bio,omitempty"`
	Website           string `json:"website,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// DisplayName prefers the full name, then the username, then the email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// IsStaff reports whether the user may see and manage every post.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleModerator)
}

// RegisterInput is the payload for POST /auth/register.
type RegisterInput struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ProfileInput is the payload for PUT /users/profile.
type ProfileInput struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Bio       string `json:"bio"`
	Website   string `json:"website"`
}
