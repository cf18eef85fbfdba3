package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
)

type claims struct {
	Role      string `json:"role"`
	ProfileID string `json:"profile_id,omitempty"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates the bearer tokens that carry the actor
// identity: account id, role and the linked profile row.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (m *JWTManager) Generate(accountID uuid.UUID, role model.Role, profileID uuid.UUID, email string) (string, error) {
	now := time.Now()
	c := claims{
		Role:  string(role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}
	if profileID != uuid.Nil {
		c.ProfileID = profileID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *JWTManager) Validate(tokenString string) (*model.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	accountID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	out := &model.TokenClaims{
		AccountID: accountID,
		Role:      model.Role(c.Role),
		Email:     c.Email,
	}
	if c.ProfileID != "" {
		profileID, err := uuid.Parse(c.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("invalid profile claim: %w", err)
		}
		out.ProfileID = profileID
	}
	return out, nil
}
