package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles carried by access tokens.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleCommissioner UserRole = "COMMISSIONER"
	RoleViewer       UserRole = "VIEWER"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
