package model

import (
	"time"

	"github.com/google/uuid"
)

// Recipient is one account a notification may be dispatched to.
type Recipient struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
}

// CancellationNotice is the command handed to the notification collaborator:
// who to tell, about which appointment, why, and which role cancelled it.
// The orchestrator builds these; it never touches delivery itself.
type CancellationNotice struct {
	Recipient     Recipient `json:"recipient"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Reason        string    `json:"reason"`
	CancelledBy   Role      `json:"cancelled_by"`
}

// NotificationEvent is the in-app payload published to the broker.
type NotificationEvent struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
