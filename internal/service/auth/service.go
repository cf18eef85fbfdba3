package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	"github.com/SebasRodMag/clinica-api/pkg/auth"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
	"github.com/SebasRodMag/clinica-api/pkg/security"
)

// Service issues and validates sessions. It is deliberately thin: the
// scheduling core only needs an Actor out of a bearer token.
type Service struct {
	users       repository.UserRepository
	patients    repository.PatientRepository
	specialists repository.SpecialistRepository
	jwt         *auth.JWTManager
	hasher      security.PasswordHasher
}

func NewService(
	users repository.UserRepository,
	patients repository.PatientRepository,
	specialists repository.SpecialistRepository,
	jwtManager *auth.JWTManager,
	hasher security.PasswordHasher,
) *Service {
	return &Service{
		users:       users,
		patients:    patients,
		specialists: specialists,
		jwt:         jwtManager,
		hasher:      hasher,
	}
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	profileID, err := s.profileFor(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.Generate(user.ID, user.Role, profileID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &model.LoginResponse{
		Token:     token,
		Role:      user.Role,
		AccountID: user.ID,
	}, nil
}

// ValidateToken turns a bearer token into the actor a request runs as.
func (s *Service) ValidateToken(_ context.Context, token string) (*model.Actor, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !claims.Role.Valid() {
		return nil, apperrors.Unauthorized(fmt.Errorf("unknown role %q", claims.Role))
	}
	return &model.Actor{
		ID:        claims.AccountID,
		Role:      claims.Role,
		ProfileID: claims.ProfileID,
	}, nil
}

func (s *Service) profileFor(ctx context.Context, user *model.User) (uuid.UUID, error) {
	switch user.Role {
	case model.RolePatient:
		patient, err := s.patients.GetByUser(ctx, user.ID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to resolve patient profile: %w", err)
		}
		return patient.ID, nil
	case model.RoleSpecialist:
		specialist, err := s.specialists.GetByUser(ctx, user.ID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to resolve specialist profile: %w", err)
		}
		return specialist.ID, nil
	default:
		return uuid.Nil, nil
	}
}
