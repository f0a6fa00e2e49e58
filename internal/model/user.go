package model

import (
	"strings"
	"time"
)

// Role distinguishes students from administrative users.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Category is the exam track a test (and a student) belongs to.
type Category string

const (
	CategoryJEE     Category = "JEE"
	CategoryNEET    Category = "NEET"
	CategoryGATE    Category = "GATE"
	CategoryCAT     Category = "CAT"
	CategoryUPSC    Category = "UPSC"
	CategoryBanking Category = "BANKING"
)

// EqualsFold reports whether two categories match case-insensitively.
// Category comparison between a user's declared track and a test is
// case-insensitive throughout the entitlement checks.
func (c Category) EqualsFold(other Category) bool {
	return strings.EqualFold(string(c), string(other))
}

// User represents a platform account.
type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	TargetCategory Category  `json:"target_category"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may bypass category/visibility checks.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterRequest is the payload for creating a student account.
type RegisterRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6,max=128"`
	TargetCategory string `json:"target_category" binding:"required,oneof=JEE NEET GATE CAT UPSC BANKING"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
