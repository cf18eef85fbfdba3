package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	"github.com/SebasRodMag/clinica-api/internal/service/auth"
	pkgauth "github.com/SebasRodMag/clinica-api/pkg/auth"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
	"github.com/SebasRodMag/clinica-api/pkg/security"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakePatientRepo struct {
	byUser map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.byUser {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatientRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	p, ok := r.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type fakeSpecialistRepo struct {
	byUser map[uuid.UUID]*model.Specialist
}

func (r *fakeSpecialistRepo) Get(_ context.Context, id uuid.UUID) (*model.Specialist, error) {
	for _, s := range r.byUser {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSpecialistRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Specialist, error) {
	s, ok := r.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeSpecialistRepo) List(context.Context) ([]*model.Specialist, error) {
	return nil, nil
}

func newAuthService(t *testing.T) (*auth.Service, *model.User, uuid.UUID) {
	t.Helper()

	hasher := security.NewBcryptHasher(security.DefaultBcryptCost)
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	user := &model.User{
		ID:           uuid.New(),
		Email:        "patient@clinica.local",
		PasswordHash: hash,
		FirstName:    "Pablo",
		LastName:     "Marin",
		Role:         model.RolePatient,
	}
	patient := &model.Patient{ID: uuid.New(), UserID: user.ID}

	svc := auth.NewService(
		&fakeUserRepo{users: map[string]*model.User{user.Email: user}},
		&fakePatientRepo{byUser: map[uuid.UUID]*model.Patient{user.ID: patient}},
		&fakeSpecialistRepo{byUser: map[uuid.UUID]*model.Specialist{}},
		pkgauth.NewJWTManager("test-secret", time.Hour),
		hasher,
	)
	return svc, user, patient.ID
}

func TestLogin_IssuesActorToken(t *testing.T) {
	svc, user, patientID := newAuthService(t)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, resp.Role)
	assert.Equal(t, user.ID, resp.AccountID)

	actor, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, model.RolePatient, actor.Role)
	assert.Equal(t, patientID, actor.ProfileID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, user, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@clinica.local",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc, _, _ := newAuthService(t)

	other := pkgauth.NewJWTManager("different-secret", time.Hour)
	token, err := other.Generate(uuid.New(), model.RolePatient, uuid.New(), "x@clinica.local")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
