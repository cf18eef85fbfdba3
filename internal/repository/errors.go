package repository

import "errors"

// Sentinel errors shared by all repository implementations. Services
// translate these into typed rejections; they never reach handlers raw.
var (
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken is returned by AppointmentRepository.Create when the
	// pending-slot uniqueness constraint rejects the insert. It is the
	// authoritative guard for concurrent creations on the same slot.
	ErrSlotTaken = errors.New("slot already has a pending appointment")
)
