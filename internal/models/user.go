// Package models contains data structures for the application's domain models.
package models

import "time"

// Role is the authorization role held by a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered Inkwell account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the public directory projection of a user.
type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// UserRef is the projection used when a user is resolved inside a blog.
type UserRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary projects u to its directory listing form.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}

// Ref projects u to its blog reference form.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID uint
	Role   Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
