package models

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims carried by admin session tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
