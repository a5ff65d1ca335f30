package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role carried in access tokens issued by the campus auth service.
type UserRole string

// Roles recognised by the billing API.
const (
	RoleAdmin   UserRole = "ADMIN"
	RoleBursar  UserRole = "BURSAR"
	RoleCashier UserRole = "CASHIER"
	RoleAuditor UserRole = "AUDITOR"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
