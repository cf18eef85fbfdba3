package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusRealized    AppointmentStatus = "realized"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusAbsent      AppointmentStatus = "absent"
	AppointmentStatusReassigned  AppointmentStatus = "reassigned"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusRealized, AppointmentStatusCancelled,
		AppointmentStatusAbsent, AppointmentStatusReassigned, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined out of s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusRealized || s == AppointmentStatusCancelled
}

type Modality string

const (
	ModalityInPerson Modality = "in_person"
	ModalityRemote   Modality = "remote"
)

func (m Modality) Valid() bool {
	return m == ModalityInPerson || m == ModalityRemote
}

// Appointment is the aggregate root for scheduling. ScheduledAt is a civil
// datetime: it is stored without a timezone and compared as written.
// Room is set exactly once at creation, only for remote appointments, and
// never regenerated.
type Appointment struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	SpecialistID uuid.UUID         `db:"specialist_id" json:"specialist_id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	ScheduledAt  time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Modality     Modality          `db:"modality" json:"modality"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Comment      *string           `db:"comment" json:"comment,omitempty"`
	Room         *string           `db:"room" json:"room,omitempty"`
	FirstVisit   bool              `db:"first_visit" json:"first_visit"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// IsPast reports whether the appointment's civil datetime is before now.
func (a *Appointment) IsPast(now time.Time) bool {
	return a.ScheduledAt.Before(now)
}

type CreateAppointmentRequest struct {
	SpecialistID string   `json:"specialist_id" binding:"omitempty,uuid"`
	PatientID    string   `json:"patient_id" binding:"omitempty,uuid"`
	ScheduledAt  string   `json:"scheduled_at" binding:"required"`
	Modality     Modality `json:"modality" binding:"required,oneof=in_person remote"`
	Comment      string   `json:"comment" binding:"max=1000"`
}

// UpdateAppointmentRequest carries the fields a specialist or administrator
// may edit. When the appointment is already past, only ScheduledAt, Status
// and Comment are honored.
type UpdateAppointmentRequest struct {
	ScheduledAt  *string            `json:"scheduled_at"`
	Status       *AppointmentStatus `json:"status"`
	Comment      *string            `json:"comment"`
	PatientID    *string            `json:"patient_id"`
	SpecialistID *string            `json:"specialist_id"`
}

type ChangeStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AppointmentSummary is the creation response shape.
type AppointmentSummary struct {
	ID          uuid.UUID         `json:"id"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	PatientName string            `json:"patient_name"`
	Status      AppointmentStatus `json:"status"`
	Modality    Modality          `json:"modality"`
	Room        *string           `json:"room,omitempty"`
	FirstVisit  bool              `json:"first_visit"`
}

// StatusChange reports the outcome of a lifecycle transition.
type StatusChange struct {
	Previous AppointmentStatus `json:"previous"`
	New      AppointmentStatus `json:"new"`
}

// CancelResult reports how many participants were actually notified.
type CancelResult struct {
	NotifiedCount int `json:"notified_count"`
}

type AppointmentFilters struct {
	SpecialistID uuid.UUID
	PatientID    uuid.UUID
	Status       AppointmentStatus
	StartDate    time.Time
	EndDate      time.Time
}
