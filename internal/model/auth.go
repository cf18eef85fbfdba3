package model

import "github.com/google/uuid"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	AccountID uuid.UUID `json:"account_id"`
}

// TokenClaims is what the auth middleware recovers from a bearer token.
type TokenClaims struct {
	AccountID uuid.UUID
	Role      Role
	ProfileID uuid.UUID
	Email     string
}
