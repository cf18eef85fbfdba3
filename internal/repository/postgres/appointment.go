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

const pqUniqueViolation = "23505"

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{db}
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, specialist_id, patient_id, scheduled_at, modality,
			status, comment, room, first_visit, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		apt.ID,
		apt.SpecialistID,
		apt.PatientID,
		apt.ScheduledAt,
		apt.Modality,
		apt.Status,
		apt.Comment,
		apt.Room,
		apt.FirstVisit,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, specialist_id, patient_id, scheduled_at, modality,
		       status, comment, room, first_visit, cancel_reason,
		       created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	if err := r.GetDB().GetContext(ctx, &apt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET specialist_id = $1, patient_id = $2, scheduled_at = $3,
		    status = $4, comment = $5, updated_at = $6
		WHERE id = $7
	`
	apt.UpdatedAt = time.Now()

	result, err := r.GetDB().ExecContext(ctx, query,
		apt.SpecialistID,
		apt.PatientID,
		apt.ScheduledAt,
		apt.Status,
		apt.Comment,
		apt.UpdatedAt,
		apt.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, specialist_id, patient_id, scheduled_at, modality,
		       status, comment, room, first_visit, cancel_reason,
		       created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	var args []interface{}

	if filters.SpecialistID != uuid.Nil {
		args = append(args, filters.SpecialistID)
		query += fmt.Sprintf(" AND specialist_id = $%d", len(args))
	}
	if filters.PatientID != uuid.Nil {
		args = append(args, filters.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filters.StartDate.IsZero() {
		args = append(args, filters.StartDate)
		query += fmt.Sprintf(" AND scheduled_at >= $%d", len(args))
	}
	if !filters.EndDate.IsZero() {
		args = append(args, filters.EndDate)
		query += fmt.Sprintf(" AND scheduled_at <= $%d", len(args))
	}

	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) PendingTimesForDay(ctx context.Context, specialistID uuid.UUID, date time.Time) ([]model.TimeOfDay, error) {
	query := `
		SELECT scheduled_at
		FROM appointments
		WHERE specialist_id = $1
		AND scheduled_at >= $2
		AND scheduled_at < $3
		AND status = 'pending'
		ORDER BY scheduled_at ASC
	`
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var times []time.Time
	if err := r.GetDB().SelectContext(ctx, &times, query, specialistID, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to get pending times: %w", err)
	}

	occupied := make([]model.TimeOfDay, 0, len(times))
	for _, t := range times {
		occupied = append(occupied, model.TimeOfDayOf(t))
	}
	return occupied, nil
}

func (r *appointmentRepository) HasPendingAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE specialist_id = $1
			AND scheduled_at = $2
			AND status = 'pending'
		)
	`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, specialistID, at); err != nil {
		return false, fmt.Errorf("failed to check pending slot: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM appointments WHERE patient_id = $1`
	var count int
	if err := r.GetDB().GetContext(ctx, &count, query, patientID); err != nil {
		return 0, fmt.Errorf("failed to count patient appointments: %w", err)
	}
	return count, nil
}

// UpdateStatusFrom is the serialization point for concurrent transitions:
// the WHERE clause only matches while the row is still in the expected
// status, so exactly one concurrent writer wins.
func (r *appointmentRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.GetDB().ExecContext(ctx, query, to, cancelReason, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) SetRoom(ctx context.Context, id uuid.UUID, room string) error {
	// Room is written exactly once, right after creation; never overwrite.
	query := `
		UPDATE appointments
		SET room = $1, updated_at = $2
		WHERE id = $3 AND room IS NULL
	`
	if _, err := r.GetDB().ExecContext(ctx, query, room, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set appointment room: %w", err)
	}
	return nil
}
