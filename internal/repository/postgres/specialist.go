package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
)

type specialistRepository struct {
	BaseRepository
}

func NewSpecialistRepository(db BaseRepository) repository.SpecialistRepository {
	return &specialistRepository{db}
}

func (r *specialistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialist, error) {
	query := `
		SELECT id, user_id, specialty, created_at, updated_at, deleted_at
		FROM specialists
		WHERE id = $1 AND deleted_at IS NULL
	`
	var sp model.Specialist
	if err := r.GetDB().GetContext(ctx, &sp, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get specialist: %w", err)
	}
	return &sp, nil
}

func (r *specialistRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Specialist, error) {
	query := `
		SELECT id, user_id, specialty, created_at, updated_at, deleted_at
		FROM specialists
		WHERE user_id = $1 AND deleted_at IS NULL
	`
	var sp model.Specialist
	if err := r.GetDB().GetContext(ctx, &sp, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get specialist by user: %w", err)
	}
	return &sp, nil
}

func (r *specialistRepository) List(ctx context.Context) ([]*model.Specialist, error) {
	query := `
		SELECT id, user_id, specialty, created_at, updated_at, deleted_at
		FROM specialists
		WHERE deleted_at IS NULL
		ORDER BY specialty, created_at
	`
	var specialists []*model.Specialist
	if err := r.GetDB().SelectContext(ctx, &specialists, query); err != nil {
		return nil, fmt.Errorf("failed to list specialists: %w", err)
	}
	return specialists, nil
}
