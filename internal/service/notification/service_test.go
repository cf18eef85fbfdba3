package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/notification"
)

type sentMail struct {
	to      string
	subject string
	content string
}

type fakeEmailService struct {
	sent []sentMail
	err  error
}

func (f *fakeEmailService) SendCustom(_ context.Context, to, subject, content string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, content: content})
	return nil
}

type fakeBroker struct {
	published []interface{}
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message)
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func sampleNotice() *model.CancellationNotice {
	return &model.CancellationNotice{
		Recipient: model.Recipient{
			AccountID: uuid.New(),
			Email:     "laura@example.com",
			Name:      "Laura Ortiz",
			Role:      model.RolePatient,
		},
		AppointmentID: uuid.New(),
		ScheduledAt:   time.Date(2026, 9, 7, 10, 0, 0, 0, time.Local),
		Reason:        "family emergency",
		CancelledBy:   model.RoleSpecialist,
	}
}

func TestNotifyCancellation_DeliversEmailAndEvent(t *testing.T) {
	emails := &fakeEmailService{}
	broker := &fakeBroker{}
	svc := notification.NewService(emails, broker)

	notice := sampleNotice()
	require.NoError(t, svc.NotifyCancellation(context.Background(), notice))

	require.Len(t, emails.sent, 1)
	assert.Equal(t, "laura@example.com", emails.sent[0].to)
	assert.Contains(t, emails.sent[0].content, "family emergency")
	assert.Contains(t, emails.sent[0].content, "2026-09-07 10:00")

	require.Len(t, broker.published, 1)
	event, ok := broker.published[0].(*model.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, "appointment_cancelled", event.Type)
	assert.Equal(t, notice.Recipient.AccountID, event.AccountID)
	assert.Equal(t, notice.AppointmentID, event.AppointmentID)
}

func TestNotifyCancellation_EmailFailureIsFatal(t *testing.T) {
	emails := &fakeEmailService{err: errors.New("smtp unreachable")}
	broker := &fakeBroker{}
	svc := notification.NewService(emails, broker)

	err := svc.NotifyCancellation(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to deliver cancellation email")
	assert.Empty(t, broker.published, "no in-app event without a delivered email")
}

func TestNotifyCancellation_BrokerFailureIsNotFatal(t *testing.T) {
	emails := &fakeEmailService{}
	broker := &fakeBroker{err: errors.New("circuit breaker is open")}
	svc := notification.NewService(emails, broker)

	require.NoError(t, svc.NotifyCancellation(context.Background(), sampleNotice()))
	assert.Len(t, emails.sent, 1)
}

func TestNotifyCancellation_NilBroker(t *testing.T) {
	emails := &fakeEmailService{}
	svc := notification.NewService(emails, nil)

	require.NoError(t, svc.NotifyCancellation(context.Background(), sampleNotice()))
	assert.Len(t, emails.sent, 1)
}
