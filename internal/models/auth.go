package models

import "github.com/golang-jwt/jwt/v5"

// SignupRequest registers a new account.
type SignupRequest struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Username string   `json:"user_name" validate:"required,min=3,max=100"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=student admin"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"user_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// JWTClaims represents the JWT payload for access tokens. The subject is
// the username; Role is refreshed from the store on every request.
type JWTClaims struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *JWTClaims) Username() string {
	return c.Subject
}
