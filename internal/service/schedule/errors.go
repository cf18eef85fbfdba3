package schedule

import (
	apperrors "github.com/SebasRodMag/clinica-api/pkg/errors"
)

// Typed rejections returned by the scheduling core. Handlers compare with
// errors.Is; the error middleware maps them to HTTP statuses.
var (
	// ErrNonWorkingDay rejects dates on weekends or configured holidays.
	ErrNonWorkingDay = apperrors.BusinessRule("the clinic is closed on the requested date")
	// ErrInvalidTimeSlot rejects datetimes that do not land exactly on a
	// bookable slot start within business hours.
	ErrInvalidTimeSlot = apperrors.BusinessRule("the requested time does not match an available slot")
	// ErrSlotTaken rejects a creation targeting a slot that already holds a
	// pending appointment.
	ErrSlotTaken = apperrors.Conflict("the requested slot is already taken")
	// ErrPastDatetime rejects creations scheduled at or before now.
	ErrPastDatetime = apperrors.BusinessRule("appointments must be scheduled in the future")
	// ErrForbidden rejects a requester whose role, participation or timing
	// does not satisfy the permission matrix.
	ErrForbidden = apperrors.Forbidden("not allowed to perform this operation on the appointment")
	// ErrInvalidTransition rejects transitions out of a terminal status or
	// ones lost to a concurrent winner.
	ErrInvalidTransition = apperrors.InvalidState("status transition is not allowed from the current status")
	// ErrNotCancellable rejects cancellation of anything but a pending
	// appointment.
	ErrNotCancellable = apperrors.InvalidState("only pending appointments can be cancelled")
	// ErrInvalidDate rejects malformed date or datetime input.
	ErrInvalidDate = apperrors.BadRequest("invalid date, expected YYYY-MM-DD", nil)
)
