package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/audit"
)

// patientCancelCutoff is how far before the scheduled time a patient may
// still cancel. The boundary is strict: exactly 24 hours out is too late.
const patientCancelCutoff = 24 * time.Hour

// transitionRule is one row of the permission matrix: which statuses a role
// may request, whether it must be a participant, and any temporal
// constraint on the appointment being transitioned.
type transitionRule struct {
	// targets restricts the requestable statuses; empty means any status.
	targets map[model.AppointmentStatus]struct{}
	// participant requires the actor's profile to match this side of the
	// appointment.
	participant func(actor model.Actor, apt *model.Appointment) bool
	// temporal rejects transitions based on current status and timing.
	temporal func(apt *model.Appointment, now time.Time) bool
}

var transitionMatrix = map[model.Role]transitionRule{
	model.RolePatient: {
		targets: map[model.AppointmentStatus]struct{}{
			model.AppointmentStatusCancelled: {},
		},
		participant: func(actor model.Actor, apt *model.Appointment) bool {
			return apt.PatientID == actor.ProfileID
		},
		temporal: func(apt *model.Appointment, now time.Time) bool {
			return apt.Status == model.AppointmentStatusPending &&
				apt.ScheduledAt.Sub(now) > patientCancelCutoff
		},
	},
	model.RoleSpecialist: {
		participant: func(actor model.Actor, apt *model.Appointment) bool {
			return apt.SpecialistID == actor.ProfileID
		},
	},
	model.RoleAdministrator: {},
}

// authorizeTransition checks the matrix. Every path that fails yields
// ErrForbidden; terminal-status checks are handled by the caller so the
// loser of a race still sees the state error, not an authorization one.
func authorizeTransition(actor model.Actor, apt *model.Appointment, target model.AppointmentStatus, now time.Time) error {
	rule, ok := transitionMatrix[actor.Role]
	if !ok {
		return ErrForbidden
	}

	if len(rule.targets) > 0 {
		if _, allowed := rule.targets[target]; !allowed {
			return ErrForbidden
		}
	}
	if rule.participant != nil && !rule.participant(actor, apt) {
		return ErrForbidden
	}
	if rule.temporal != nil && !rule.temporal(apt, now) {
		return ErrForbidden
	}
	return nil
}

// ChangeStatus moves an appointment through the lifecycle state machine.
// Transitions to cancelled always go through the cancellation orchestrator
// so participants get notified regardless of who asked.
func (s *Service) ChangeStatus(ctx context.Context, actor model.Actor, id uuid.UUID, target model.AppointmentStatus) (*model.StatusChange, error) {
	if !target.Valid() {
		return nil, ErrInvalidTransition
	}

	if target == model.AppointmentStatusCancelled {
		apt, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		previous := apt.Status
		if _, err := s.Cancel(ctx, actor, id, ""); err != nil {
			return nil, err
		}
		return &model.StatusChange{Previous: previous, New: model.AppointmentStatusCancelled}, nil
	}

	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if apt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	if err := authorizeTransition(actor, apt, target, time.Now()); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatusFrom(ctx, id, apt.Status, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to transition appointment: %w", err)
	}
	if !ok {
		// Lost a concurrent transition; the observed status is stale.
		return nil, ErrInvalidTransition
	}

	s.metrics.StatusTransitions.WithLabelValues(string(apt.Status), string(target), string(actor.Role)).Inc()
	s.auditor.Log(ctx, actor, model.AuditActionStatusChange, model.AuditEntityAppointment, id, &audit.LogOptions{
		Changes: map[string]interface{}{
			"previous": apt.Status,
			"new":      target,
		},
	})

	return &model.StatusChange{Previous: apt.Status, New: target}, nil
}
