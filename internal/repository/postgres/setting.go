package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
)

type settingRepository struct {
	BaseRepository
}

func NewSettingRepository(db BaseRepository) repository.SettingRepository {
	return &settingRepository{db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	query := `
		SELECT id, key, value, updated_by, created_at, updated_at
		FROM settings
		WHERE key = $1
	`
	var s model.Setting
	if err := r.GetDB().GetContext(ctx, &s, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &s, nil
}

func (r *settingRepository) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	query := `
		SELECT id, key, value, updated_by, created_at, updated_at
		FROM settings
		WHERE key = ANY($1)
	`
	var rows []*model.Setting
	if err := r.GetDB().SelectContext(ctx, &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, s := range rows {
		values[s.Key] = s.Value
	}
	return values, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.Setting) error {
	query := `
		INSERT INTO settings (id, key, value, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = now
	}
	setting.UpdatedAt = now

	if _, err := r.GetDB().ExecContext(ctx, query,
		setting.ID,
		setting.Key,
		setting.Value,
		setting.UpdatedBy,
		setting.CreatedAt,
		setting.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
