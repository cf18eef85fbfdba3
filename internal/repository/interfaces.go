package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SebasRodMag/clinica-api/internal/model"
)

// AppointmentRepository is the persistence enforcement point for the
// scheduling invariants: Create must fail with the slot-taken sentinel when
// another pending appointment holds the same (specialist, datetime), and
// UpdateStatusFrom must only write when the current status still matches.
type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, apt *model.Appointment) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// PendingTimesForDay returns the time-of-day values occupied by pending
	// appointments for the specialist on the given civil date.
	PendingTimesForDay(ctx context.Context, specialistID uuid.UUID, date time.Time) ([]model.TimeOfDay, error)
	// HasPendingAt reports whether a pending appointment exists at exactly
	// this (specialist, datetime).
	HasPendingAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (bool, error)
	// CountByPatient counts all appointments the patient ever had, with any
	// specialist and in any status.
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	// UpdateStatusFrom atomically moves id from the expected status to the
	// new one and returns false when the row was not in the expected status.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error)
	SetRoom(ctx context.Context, id uuid.UUID, room string) error
}

type SpecialistRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Specialist, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Specialist, error)
	List(ctx context.Context) ([]*model.Specialist, error)
}

type PatientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (*model.Setting, error)
	GetAll(ctx context.Context, keys ...string) (map[string]string, error)
	Upsert(ctx context.Context, setting *model.Setting) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}
