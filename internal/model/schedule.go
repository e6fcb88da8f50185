package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeRange is a half-open working interval [Start, End) within a single day.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (r TimeRange) Duration() int {
	return int(r.End - r.Start)
}

// WeeklyAvailability maps a weekday to the doctor's ordered working ranges.
// Stored as a JSONB column.
type WeeklyAvailability map[time.Weekday][]TimeRange

func (w WeeklyAvailability) Value() (driver.Value, error) {
	return json.Marshal(w)
}

func (w *WeeklyAvailability) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("cannot scan %T into WeeklyAvailability", src)
	}
}

type OverrideType string

const (
	// OverrideUnavailable blocks the whole date regardless of the weekly template.
	OverrideUnavailable OverrideType = "unavailable"
	// OverrideExtraHours replaces the weekday's template ranges for that date.
	OverrideExtraHours OverrideType = "extra_hours"
)

// RangeList is a JSONB-stored list of time ranges for an override.
type RangeList []TimeRange

func (r RangeList) Value() (driver.Value, error) {
	if r == nil {
		return json.Marshal([]TimeRange{})
	}
	return json.Marshal(r)
}

func (r *RangeList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into RangeList", src)
	}
}

// ScheduleOverride is a date-specific exception to the weekly template.
// At most one override exists per (doctor, date).
type ScheduleOverride struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	DoctorID  uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Date      time.Time    `db:"date" json:"date"`
	Type      OverrideType `db:"type" json:"type"`
	Ranges    RangeList    `db:"ranges" json:"ranges,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// DoctorScheduleTemplate is a doctor's recurring weekly availability plus its
// date-specific overrides.
type DoctorScheduleTemplate struct {
	DoctorID            uuid.UUID          `db:"doctor_id" json:"doctor_id"`
	WeeklyAvailability  WeeklyAvailability `db:"weekly_availability" json:"weekly_availability"`
	SlotDurationMinutes int                `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	EffectiveFrom       *time.Time         `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo         *time.Time         `db:"effective_to" json:"effective_to,omitempty"`
	Overrides           []ScheduleOverride `db:"-" json:"overrides,omitempty"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}

// OverrideFor returns the override for the given date, if any.
func (t *DoctorScheduleTemplate) OverrideFor(date time.Time) *ScheduleOverride {
	for i := range t.Overrides {
		if SameDate(t.Overrides[i].Date, date) {
			return &t.Overrides[i]
		}
	}
	return nil
}

// InEffect reports whether the template covers the given date.
func (t *DoctorScheduleTemplate) InEffect(date time.Time) bool {
	if t.EffectiveFrom != nil && date.Before(DateOf(*t.EffectiveFrom)) {
		return false
	}
	if t.EffectiveTo != nil && date.After(DateOf(*t.EffectiveTo)) {
		return false
	}
	return true
}

// Slot is a bookable interval derived from a template. Computed fresh per
// request and never persisted.
type Slot struct {
	Date        time.Time `json:"date"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

type UpsertScheduleRequest struct {
	WeeklyAvailability  map[string][]TimeRangeRequest `json:"weekly_availability" binding:"required"`
	SlotDurationMinutes int                           `json:"slot_duration_minutes" binding:"required,gt=0"`
	EffectiveFrom       string                        `json:"effective_from" binding:"omitempty,dateonly"`
	EffectiveTo         string                        `json:"effective_to" binding:"omitempty,dateonly"`
}

type TimeRangeRequest struct {
	Start string `json:"start" binding:"required,timeofday"`
	End   string `json:"end" binding:"required,timeofday"`
}

type AddOverrideRequest struct {
	Date   string             `json:"date" binding:"required,dateonly"`
	Type   OverrideType       `json:"type" binding:"required,oneof=unavailable extra_hours"`
	Ranges []TimeRangeRequest `json:"ranges"`
}
