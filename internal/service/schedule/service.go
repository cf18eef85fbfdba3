package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/model"
	redisclient "github.com/SebasRodMag/clinica-api/internal/redis"
	"github.com/SebasRodMag/clinica-api/internal/repository"
	"github.com/SebasRodMag/clinica-api/internal/service/audit"
	"github.com/SebasRodMag/clinica-api/internal/service/notification"
	"github.com/SebasRodMag/clinica-api/internal/service/settings"
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
	"github.com/SebasRodMag/clinica-api/pkg/metrics"
)

// Service is the scheduling core: availability, validation, the lifecycle
// state machine and cancellation orchestration.
type Service struct {
	repo        repository.AppointmentRepository
	specialists repository.SpecialistRepository
	patients    repository.PatientRepository
	users       repository.UserRepository
	settings    settings.Provider
	locker      redisclient.SlotLocker
	notifier    notification.Service
	auditor     *audit.Service
	metrics     *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	specialists repository.SpecialistRepository,
	patients repository.PatientRepository,
	users repository.UserRepository,
	settingsSvc settings.Provider,
	locker redisclient.SlotLocker,
	notifier notification.Service,
	auditor *audit.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:        repo,
		specialists: specialists,
		patients:    patients,
		users:       users,
		settings:    settingsSvc,
		locker:      locker,
		notifier:    notifier,
		auditor:     auditor,
		metrics:     m,
	}
}

// CreateAppointment validates the request, persists a pending appointment
// and, for remote appointments, assigns the room derived from the new id.
// The per-slot lock narrows the race window; the repository's uniqueness
// constraint is the authoritative guard either way.
func (s *Service) CreateAppointment(ctx context.Context, actor model.Actor, specialistID, patientID uuid.UUID, scheduledAt time.Time, modality model.Modality, comment string) (*model.AppointmentSummary, error) {
	specialist, err := s.specialists.Get(ctx, specialistID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("specialist", err)
		}
		return nil, fmt.Errorf("failed to resolve specialist: %w", err)
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	if err := s.ValidateNewAppointment(ctx, specialist.ID, scheduledAt); err != nil {
		s.metrics.RejectedRequests.WithLabelValues(rejectionLabel(err)).Inc()
		return nil, err
	}

	priorCount, err := s.repo.CountByPatient(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior appointments: %w", err)
	}

	apt := &model.Appointment{
		ID:           uuid.New(),
		SpecialistID: specialist.ID,
		PatientID:    patient.ID,
		ScheduledAt:  scheduledAt,
		Modality:     modality,
		Status:       model.AppointmentStatusPending,
		FirstVisit:   priorCount == 0,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if comment != "" {
		apt.Comment = &comment
	}

	err = s.locker.WithSlotLock(ctx, specialist.ID, scheduledAt, func(lockCtx context.Context) error {
		// Re-check inside the critical section; the insert still carries
		// the constraint for writers that bypassed the lock.
		taken, err := s.repo.HasPendingAt(lockCtx, specialist.ID, scheduledAt)
		if err != nil {
			return fmt.Errorf("failed to re-check slot: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}
		return s.repo.Create(lockCtx, apt)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) || errors.Is(err, repository.ErrSlotTaken) || errors.Is(err, ErrSlotTaken) {
			s.metrics.SlotConflicts.Inc()
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	if modality == model.ModalityRemote {
		room := roomForAppointment(apt.ID)
		if err := s.repo.SetRoom(ctx, apt.ID, room); err != nil {
			// The appointment stands; the room can be re-derived from the id.
			log.Error().Err(err).Str("appointment_id", apt.ID.String()).Msg("failed to store room identifier")
		} else {
			apt.Room = &room
		}
	}

	s.metrics.AppointmentsCreated.Inc()
	s.auditor.Log(ctx, actor, model.AuditActionCreate, model.AuditEntityAppointment, apt.ID, &audit.LogOptions{
		Changes: apt,
	})

	return s.summarize(ctx, apt), nil
}

// GetAppointment returns one appointment, restricted to its participants
// and administrators.
func (s *Service) GetAppointment(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, apt) {
		return nil, ErrForbidden
	}
	return apt, nil
}

// ListAppointments lists appointments matching the filters. Non-admin
// actors are pinned to their own profile regardless of the filter values.
func (s *Service) ListAppointments(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	switch actor.Role {
	case model.RolePatient:
		filters.PatientID = actor.ProfileID
	case model.RoleSpecialist:
		filters.SpecialistID = actor.ProfileID
	case model.RoleAdministrator:
	default:
		return nil, ErrForbidden
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// UpdateAppointment applies a field-restricted edit. Patients never edit
// through this path. Once an appointment is past, only the datetime, status
// and comment may change; reassigning participants retroactively is blocked.
func (s *Service) UpdateAppointment(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if actor.Role != model.RoleSpecialist && actor.Role != model.RoleAdministrator {
		return nil, ErrForbidden
	}

	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleSpecialist && apt.SpecialistID != actor.ProfileID {
		return nil, ErrForbidden
	}

	now := time.Now()
	past := apt.IsPast(now)

	if past && (req.PatientID != nil || req.SpecialistID != nil) {
		return nil, ErrForbidden
	}

	if req.Status != nil && *req.Status != apt.Status {
		if _, err := s.ChangeStatus(ctx, actor, id, *req.Status); err != nil {
			return nil, err
		}
		apt.Status = *req.Status
	}

	if req.ScheduledAt != nil {
		newAt, err := ParseCivilDatetime(*req.ScheduledAt)
		if err != nil {
			return nil, apperrors.BadRequest("scheduled_at must be YYYY-MM-DDTHH:MM", err)
		}
		// A rescheduled datetime must land in the future even when the
		// appointment being edited is already past.
		if !newAt.After(now) {
			return nil, ErrPastDatetime
		}
		apt.ScheduledAt = newAt
	}

	if req.Comment != nil {
		apt.Comment = req.Comment
	}

	if !past {
		if req.PatientID != nil {
			pid, err := uuid.Parse(*req.PatientID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid patient id", err)
			}
			if _, err := s.patients.Get(ctx, pid); err != nil {
				return nil, apperrors.NotFound("patient", err)
			}
			apt.PatientID = pid
		}
		if req.SpecialistID != nil {
			sid, err := uuid.Parse(*req.SpecialistID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid specialist id", err)
			}
			if _, err := s.specialists.Get(ctx, sid); err != nil {
				return nil, apperrors.NotFound("specialist", err)
			}
			apt.SpecialistID = sid
		}
	}

	if err := s.repo.Update(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.auditor.Log(ctx, actor, model.AuditActionUpdate, model.AuditEntityAppointment, apt.ID, &audit.LogOptions{
		Changes: req,
	})
	return apt, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) isParticipant(actor model.Actor, apt *model.Appointment) bool {
	switch actor.Role {
	case model.RoleAdministrator:
		return true
	case model.RolePatient:
		return apt.PatientID == actor.ProfileID
	case model.RoleSpecialist:
		return apt.SpecialistID == actor.ProfileID
	}
	return false
}

func (s *Service) summarize(ctx context.Context, apt *model.Appointment) *model.AppointmentSummary {
	summary := &model.AppointmentSummary{
		ID:         apt.ID,
		Date:       apt.ScheduledAt.Format("2006-01-02"),
		Time:       model.TimeOfDayOf(apt.ScheduledAt).String(),
		Status:     apt.Status,
		Modality:   apt.Modality,
		Room:       apt.Room,
		FirstVisit: apt.FirstVisit,
	}

	if patient, err := s.patients.Get(ctx, apt.PatientID); err == nil {
		if user, err := s.users.Get(ctx, patient.UserID); err == nil {
			summary.PatientName = user.FullName()
		}
	}
	return summary
}

// roomForAppointment derives the stable room identifier for a remote
// appointment from its id. It is computed once and never regenerated.
func roomForAppointment(id uuid.UUID) string {
	sum := sha256.Sum256(id[:])
	return "room-" + hex.EncodeToString(sum[:6])
}

// ParseCivilDatetime parses the wire datetime shape (local civil time,
// no zone designator).
func ParseCivilDatetime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, ErrNonWorkingDay):
		return "non_working_day"
	case errors.Is(err, ErrInvalidTimeSlot):
		return "invalid_time_slot"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrPastDatetime):
		return "past_datetime"
	default:
		return "other"
	}
}
