package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// SignupRequest registers a new account. Students are approved immediately;
// instructor accounts await administrative review.
type SignupRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=6"`
	FullName     string  `json:"full_name" validate:"required"`
	Role         string  `json:"role" validate:"omitempty,oneof=STUDENT INSTRUCTOR"`
	TradingLevel *string `json:"trading_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	IP           string  `json:"-"`
	UserAgent    string  `json:"-"`
}

// AuthResponse returns the issued credential and user info.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     UserRole   `json:"role"`
	Status   UserStatus `json:"status"`
}

// JWTClaims represents the JWT payload for session credentials. Claims are
// frozen at issuance; a later role change does not touch outstanding tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
