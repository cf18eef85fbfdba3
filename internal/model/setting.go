package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Setting keys the schedule provider reads.
const (
	SettingBusinessHours   = "business_hours"
	SettingNonWorkingDays  = "non_working_days"
	SettingSlotDurationMin = "slot_duration_minutes"
)

// Setting is one key/value configuration row. Values are stored as text:
// JSON for structured settings, a plain integer string for durations.
type Setting struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy uuid.UUID `db:"updated_by" json:"updated_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimeOfDay is a clock time with minute precision, no date and no zone.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf extracts the time-of-day component of a datetime.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time of day d later. Results past midnight are not
// meaningful for business hours and are caught by settings validation.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// BusinessHours is the daily open/close window during which slots exist.
type BusinessHours struct {
	Open  TimeOfDay `json:"open"`
	Close TimeOfDay `json:"close"`
}

// ClinicSettings is the typed view of the schedule configuration. It is the
// single place business hours, holidays and slot duration are parsed and
// validated; callers never see raw setting rows.
type ClinicSettings struct {
	Hours          BusinessHours
	SlotDuration   time.Duration
	NonWorkingDays map[string]struct{}
}

// IsNonWorking reports whether date falls on a weekend or a configured
// holiday. Weekends are a fixed Saturday/Sunday rule.
func (s *ClinicSettings) IsNonWorking(date time.Time) bool {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	_, ok := s.NonWorkingDays[date.Format("2006-01-02")]
	return ok
}

// Slots enumerates the bookable slot starts: open + k·duration, for every k
// where the whole slot still fits before close.
func (s *ClinicSettings) Slots() []TimeOfDay {
	var slots []TimeOfDay
	for start := s.Hours.Open; start.Add(s.SlotDuration) <= s.Hours.Close; start = start.Add(s.SlotDuration) {
		slots = append(slots, start)
	}
	return slots
}

// AlignedSlot reports whether t is exactly one of the enumerable slot
// starts, including the fits-before-close check.
func (s *ClinicSettings) AlignedSlot(t TimeOfDay) bool {
	if t < s.Hours.Open || t.Add(s.SlotDuration) > s.Hours.Close {
		return false
	}
	step := TimeOfDay(s.SlotDuration / time.Minute)
	return (t-s.Hours.Open)%step == 0
}

// BusinessHoursPayload is the wire shape of the business_hours setting.
type BusinessHoursPayload struct {
	Open  string `json:"open" binding:"required"`
	Close string `json:"close" binding:"required"`
}

// ScheduleSettingsResponse is the read-configuration response.
type ScheduleSettingsResponse struct {
	BusinessHours       BusinessHoursPayload `json:"business_hours"`
	NonWorkingDays      []string             `json:"non_working_days"`
	SlotDurationMinutes int                  `json:"slot_duration_minutes"`
}

// UpdateScheduleSettingsRequest is the admin write shape. Nil sections are
// left untouched.
type UpdateScheduleSettingsRequest struct {
	BusinessHours       *BusinessHoursPayload `json:"business_hours"`
	NonWorkingDays      *[]string             `json:"non_working_days"`
	SlotDurationMinutes *int                  `json:"slot_duration_minutes"`
}
