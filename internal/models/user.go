package models

import (
	"time"

	"github.com/lib/pq"
)

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User represents a customer or an administrator.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	Avatar       string         `json:"avatar"`
	Roles        pq.StringArray `gorm:"type:text[]" json:"roles"`
	Verified     bool           `json:"verify"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
