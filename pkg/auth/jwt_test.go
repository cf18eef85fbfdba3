package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebasRodMag/clinica-api/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	accountID := uuid.New()
	profileID := uuid.New()

	token, err := m.Generate(accountID, model.RoleSpecialist, profileID, "s@clinica.local")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, model.RoleSpecialist, claims.Role)
	assert.Equal(t, profileID, claims.ProfileID)
	assert.Equal(t, "s@clinica.local", claims.Email)
}

func TestJWTAdminHasNoProfile(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.Generate(uuid.New(), model.RoleAdministrator, uuid.Nil, "a@clinica.local")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, claims.ProfileID)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)

	token, err := m.Generate(uuid.New(), model.RolePatient, uuid.New(), "p@clinica.local")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}
