package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/email"
	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/pkg/messaging"
)

const inAppChannel = "notifications"

// Service is the notification collaborator: it delivers one notice to one
// recipient and reports success or failure. The cancellation orchestrator
// decides who gets notified; this service only delivers.
type Service interface {
	NotifyCancellation(ctx context.Context, notice *model.CancellationNotice) error
}

type service struct {
	emailSvc email.Service
	broker   messaging.Broker
}

func NewService(emailSvc email.Service, broker messaging.Broker) Service {
	return &service{
		emailSvc: emailSvc,
		broker:   broker,
	}
}

func (s *service) NotifyCancellation(ctx context.Context, notice *model.CancellationNotice) error {
	subject := "Your appointment has been cancelled"
	content := fmt.Sprintf(
		"Hello %s,\n\nThe appointment scheduled for %s was cancelled by the %s.",
		notice.Recipient.Name,
		notice.ScheduledAt.Format("2006-01-02 15:04"),
		notice.CancelledBy,
	)
	if notice.Reason != "" {
		content += fmt.Sprintf("\n\nReason: %s", notice.Reason)
	}

	if err := s.emailSvc.SendCustom(ctx, notice.Recipient.Email, subject, content); err != nil {
		return fmt.Errorf("failed to deliver cancellation email: %w", err)
	}

	// In-app event is secondary; its failure does not undo a delivered email.
	if s.broker != nil {
		event := &model.NotificationEvent{
			ID:            uuid.New(),
			AccountID:     notice.Recipient.AccountID,
			AppointmentID: notice.AppointmentID,
			Type:          "appointment_cancelled",
			Content:       content,
			CreatedAt:     time.Now(),
		}
		if err := s.broker.Publish(ctx, inAppChannel, event); err != nil {
			log.Warn().
				Err(err).
				Str("appointment_id", notice.AppointmentID.String()).
				Str("account_id", notice.Recipient.AccountID.String()).
				Msg("failed to publish in-app cancellation event")
		}
	}

	return nil
}
