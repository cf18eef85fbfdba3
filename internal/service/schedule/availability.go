package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
)

// ComputeAvailableSlots returns the ordered bookable time-of-day slots for
// a specialist on a calendar date. A closed day yields an empty list, which
// is a successful result; a misconfigured schedule is an error and is never
// conflated with "no slots".
//
// Past dates are not rejected here: a what-was-available query is a
// legitimate read. Rejecting past creations is the validator's job.
func (s *Service) ComputeAvailableSlots(ctx context.Context, specialistID uuid.UUID, date time.Time) ([]model.TimeOfDay, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.IsNonWorking(date) {
		return []model.TimeOfDay{}, nil
	}

	occupied, err := s.repo.PendingTimesForDay(ctx, specialistID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupied slots: %w", err)
	}

	taken := make(map[model.TimeOfDay]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	available := []model.TimeOfDay{}
	for _, slot := range cfg.Slots() {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}
	return available, nil
}
