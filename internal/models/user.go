package models

import "time"

// User captures application-facing fields for an authenticated identity.
type User struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	IsAdmin       bool      `json:"is_admin"`
	PasswordHash  string    `json:"-"`
	LedgerVersion int64     `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Role returns the role name derived from the admin flag.
func (u User) Role() string {
	return RoleFor(u.IsAdmin)
}
