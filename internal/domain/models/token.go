package models

import "github.com/golang-jwt/jwt/v5"

const AccessToken = "access"

// CustomClaims are the claims carried by an access token.
type CustomClaims struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}
