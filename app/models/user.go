package models

import "time"

// Role values stored on a user row. Authors and admins are mirrored into the
// external author registry; general users are not.
const (
	RoleGeneral = "general"
	RoleAuthor  = "author"
	RoleAdmin   = "admin"
)

type User struct {
	ID              int64
	Name            string
	LastNameP       string
	LastNameM       string
	Email           string
	Boleta          string
	Role            string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasAuthorRole reports whether the role requires a linked author record in
// the external registry.
func HasAuthorRole(role string) bool {
	return role == RoleAuthor || role == RoleAdmin
}
