package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebasRodMag/clinica-api/internal/model"
	"github.com/SebasRodMag/clinica-api/internal/service/schedule"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
)

func TestChangeStatus_SpecialistMarksRealized(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))

	change, err := f.svc.ChangeStatus(context.Background(), f.specialistActor(), apt.ID, model.AppointmentStatusRealized)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, change.Previous)
	assert.Equal(t, model.AppointmentStatusRealized, change.New)

	stored, err := f.repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRealized, stored.Status)
}

func TestChangeStatus_SpecialistOnlyOwnAppointments(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))

	other := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, ProfileID: uuid.New()}
	_, err := f.svc.ChangeStatus(context.Background(), other, apt.ID, model.AppointmentStatusRealized)
	assert.ErrorIs(t, err, schedule.ErrForbidden)
}

func TestChangeStatus_PatientCannotMarkRealized(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))

	_, err := f.svc.ChangeStatus(context.Background(), f.patientActor(), apt.ID, model.AppointmentStatusRealized)
	assert.ErrorIs(t, err, schedule.ErrForbidden)
}

func TestChangeStatus_AdminAnyTransition(t *testing.T) {
	f := newFixture()

	for _, target := range []model.AppointmentStatus{
		model.AppointmentStatusRealized,
		model.AppointmentStatusAbsent,
		model.AppointmentStatusReassigned,
		model.AppointmentStatusRescheduled,
	} {
		t.Run(string(target), func(t *testing.T) {
			apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))
			change, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), apt.ID, target)
			require.NoError(t, err)
			assert.Equal(t, target, change.New)
		})
	}
}

func TestChangeStatus_TerminalStatusRejected(t *testing.T) {
	f := newFixture()

	for _, terminal := range []model.AppointmentStatus{
		model.AppointmentStatusRealized,
		model.AppointmentStatusCancelled,
	} {
		t.Run(string(terminal), func(t *testing.T) {
			apt := f.seedAppointment(terminal, nextWeekday(time.Monday, 9, 0))
			_, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), apt.ID, model.AppointmentStatusAbsent)
			assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
		})
	}
}

func TestChangeStatus_UnknownStatusRejected(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))

	_, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), apt.ID, model.AppointmentStatus("archived"))
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestChangeStatus_UnknownAppointment(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), uuid.New(), model.AppointmentStatusRealized)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestChangeStatus_ConcurrentLoserGetsInvalidTransition(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))
	f.repo.failCAS = true

	_, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), apt.ID, model.AppointmentStatusRealized)
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestChangeStatus_CancelledGoesThroughOrchestrator(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, nextWeekday(time.Monday, 9, 0))

	change, err := f.svc.ChangeStatus(context.Background(), f.adminActor(), apt.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, change.New)

	// Both participants were notified, proving the cancellation fan-out ran.
	assert.Len(t, f.notifier.notices, 2)
}

func TestPatientCancel_CutoffBoundary(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name        string
		scheduledAt time.Time
		wantErr     error
	}{
		{"well before cutoff", now.Add(48 * time.Hour), nil},
		{"just past cutoff", now.Add(24*time.Hour + time.Minute), nil},
		{"exactly at cutoff", now.Add(24 * time.Hour), schedule.ErrForbidden},
		{"inside cutoff", now.Add(2 * time.Hour), schedule.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			apt := f.seedAppointment(model.AppointmentStatusPending, tc.scheduledAt)

			_, err := f.svc.Cancel(context.Background(), f.patientActor(), apt.ID, "")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatientCancel_OnlyOwnAppointments(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, time.Now().Add(48*time.Hour))

	other := model.Actor{ID: uuid.New(), Role: model.RolePatient, ProfileID: uuid.New()}
	_, err := f.svc.Cancel(context.Background(), other, apt.ID, "")
	assert.ErrorIs(t, err, schedule.ErrForbidden)
}

func TestSpecialistCancel_InsideCutoff(t *testing.T) {
	f := newFixture()
	apt := f.seedAppointment(model.AppointmentStatusPending, time.Now().Add(time.Hour))

	_, err := f.svc.Cancel(context.Background(), f.specialistActor(), apt.ID, "emergency")
	assert.NoError(t, err)
}
