package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log records an audit entry. Audit persistence is a side effect the core
// performs but does not own: a write failure is logged and swallowed so it
// never fails the enclosing operation.
func (s *Service) Log(ctx context.Context, actor model.Actor, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	var changes, metadata json.RawMessage
	var err error

	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}

	if opts != nil {
		if opts.Changes != nil {
			if changes, err = json.Marshal(opts.Changes); err != nil {
				log.Error().Err(err).Str("action", action).Msg("failed to marshal audit changes")
			}
		}
		if opts.Metadata != nil {
			if metadata, err = json.Marshal(opts.Metadata); err != nil {
				log.Error().Err(err).Str("action", action).Msg("failed to marshal audit metadata")
			}
		}
		entry.Changes = changes
		entry.Metadata = metadata
		entry.IPAddress = opts.IPAddress
		entry.UserAgent = opts.UserAgent
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Error().
			Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID.String()).
			Msg("failed to persist audit log")
	}
}

// List exposes the audit trail for the admin endpoint.
func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}
