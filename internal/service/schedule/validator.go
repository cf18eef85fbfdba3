package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
)

// ValidateNewAppointment applies the creation rules in order. The cheap
// calendar checks run before the double-booking lookup so obviously invalid
// requests never hit the database.
func (s *Service) ValidateNewAppointment(ctx context.Context, specialistID uuid.UUID, scheduledAt time.Time) error {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}

	if cfg.IsNonWorking(scheduledAt) {
		return ErrNonWorkingDay
	}

	if !cfg.AlignedSlot(model.TimeOfDayOf(scheduledAt)) {
		return ErrInvalidTimeSlot
	}

	taken, err := s.repo.HasPendingAt(ctx, specialistID, scheduledAt)
	if err != nil {
		return fmt.Errorf("failed to check for conflicting appointment: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	if !scheduledAt.After(time.Now()) {
		return ErrPastDatetime
	}

	return nil
}
