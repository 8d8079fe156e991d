package models

import "time"

// User is a registered resident account. Passwords are stored as bcrypt hashes.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	RoleResident = "resident"
	RoleAdmin    = "admin"
)
