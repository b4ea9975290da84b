package models

import (
	"time"
)

// User represents an account in the system
type User struct {
	ID            string    `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email,omitempty" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	IsVIP         bool      `json:"is_vip" db:"is_vip"`
	WalletBalance int64     `json:"wallet_balance" db:"wallet_balance"`
	Avatar        *string   `json:"avatar,omitempty" db:"avatar"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile strips fields that only the owner should see
func (u *User) PublicProfile() *User {
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		IsVIP:     u.IsVIP,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest is the registration form
type RegisterRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// LoginRequest is the login form
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// ChangePasswordRequest is the password change form
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" form:"old_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// Profile is a user's public page
type Profile struct {
	User     *User      `json:"user"`
	Articles []*Article `json:"articles"`
}

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// Session is returned on successful login
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Counts summarizes stored content for the metrics endpoint
type Counts struct {
	Users    int `json:"users"`
	Articles int `json:"articles"`
	Comments int `json:"comments"`
}
