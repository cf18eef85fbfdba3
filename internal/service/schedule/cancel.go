package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/audit"
)

var contactValidator = validator.New()

// Cancel performs the cancel transition and fans out notifications to the
// participants. Only the status write can fail the operation; everything
// after it is best effort.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.CancelResult, error) {
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(actor, apt, model.AppointmentStatusCancelled, time.Now()); err != nil {
		return nil, err
	}

	if apt.Status != model.AppointmentStatusPending {
		return nil, ErrNotCancellable
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	ok, err := s.repo.UpdateStatusFrom(ctx, id, model.AppointmentStatusPending, model.AppointmentStatusCancelled, reasonPtr)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if !ok {
		// A concurrent transition won; pending no longer holds.
		return nil, ErrNotCancellable
	}

	cancelledBy := actor.Role
	if !cancelledBy.Valid() {
		cancelledBy = model.RoleSystem
	}

	s.metrics.Cancellations.WithLabelValues(string(cancelledBy)).Inc()
	s.auditor.Log(ctx, actor, model.AuditActionCancel, model.AuditEntityAppointment, id, &audit.LogOptions{
		Changes: map[string]interface{}{
			"previous": model.AppointmentStatusPending,
			"new":      model.AppointmentStatusCancelled,
			"reason":   reason,
		},
	})

	notified := s.notifyParticipants(ctx, apt, reason, cancelledBy)
	return &model.CancelResult{NotifiedCount: notified}, nil
}

// notifyParticipants dispatches one notice per unique, reachable recipient
// and returns how many were actually sent. Nothing in here can fail the
// cancellation: unresolvable recipients, bad addresses and delivery errors
// are logged and skipped.
func (s *Service) notifyParticipants(ctx context.Context, apt *model.Appointment, reason string, cancelledBy model.Role) int {
	recipients := s.collectRecipients(ctx, apt)

	seen := make(map[uuid.UUID]struct{}, len(recipients))
	notified := 0

	for _, r := range recipients {
		if _, dup := seen[r.AccountID]; dup {
			s.metrics.NotificationsSkipped.Inc()
			continue
		}
		seen[r.AccountID] = struct{}{}

		if err := contactValidator.Var(r.Email, "required,email"); err != nil {
			s.metrics.NotificationsSkipped.Inc()
			log.Warn().
				Str("appointment_id", apt.ID.String()).
				Str("account_id", r.AccountID.String()).
				Msg("skipping recipient with invalid contact address")
			continue
		}

		notice := &model.CancellationNotice{
			Recipient:     r,
			AppointmentID: apt.ID,
			ScheduledAt:   apt.ScheduledAt,
			Reason:        reason,
			CancelledBy:   cancelledBy,
		}
		if err := s.notifier.NotifyCancellation(ctx, notice); err != nil {
			s.metrics.NotificationsFailed.Inc()
			log.Error().
				Err(err).
				Str("appointment_id", apt.ID.String()).
				Str("account_id", r.AccountID.String()).
				Msg("failed to notify cancellation")
			continue
		}

		s.metrics.NotificationsSent.Inc()
		notified++
	}

	return notified
}

func (s *Service) collectRecipients(ctx context.Context, apt *model.Appointment) []model.Recipient {
	var recipients []model.Recipient

	if patient, err := s.patients.Get(ctx, apt.PatientID); err == nil {
		if user, err := s.users.Get(ctx, patient.UserID); err == nil {
			recipients = append(recipients, model.Recipient{
				AccountID: user.ID,
				Email:     user.Email,
				Name:      user.FullName(),
				Role:      model.RolePatient,
			})
		} else {
			log.Warn().Err(err).Str("patient_id", apt.PatientID.String()).Msg("could not resolve patient account for notification")
		}
	}

	if specialist, err := s.specialists.Get(ctx, apt.SpecialistID); err == nil {
		if user, err := s.users.Get(ctx, specialist.UserID); err == nil {
			recipients = append(recipients, model.Recipient{
				AccountID: user.ID,
				Email:     user.Email,
				Name:      user.FullName(),
				Role:      model.RoleSpecialist,
			})
		} else {
			log.Warn().Err(err).Str("specialist_id", apt.SpecialistID.String()).Msg("could not resolve specialist account for notification")
		}
	}

	return recipients
}
