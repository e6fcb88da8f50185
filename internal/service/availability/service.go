package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
	"github.com/clinicore/scheduler-api/pkg/metrics"
)

// DefaultMaxRangeDays bounds a single availability scan.
const DefaultMaxRangeDays = 90

// Service computes bookable slots from a doctor's template, overrides and the
// booking ledger. Read-only; results are computed fresh per request and never
// cached, so concurrent bookings are always reflected on the next call.
type Service struct {
	scheduleRepo    repository.ScheduleRepository
	appointmentRepo repository.AppointmentRepository
	maxRangeDays    int
	metrics         *metrics.Metrics
	now             func() time.Time
}

type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxRangeDays(days int) Option {
	return func(s *Service) { s.maxRangeDays = days }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(scheduleRepo repository.ScheduleRepository, appointmentRepo repository.AppointmentRepository, opts ...Option) *Service {
	s := &Service{
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		maxRangeDays:    DefaultMaxRangeDays,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveSlots returns every slot for the doctor in [from, to], ordered by
// (date, start time). Slots overlapping an active appointment, or already
// elapsed (slot end at or before now), are reported unavailable.
func (s *Service) ResolveSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]model.Slot, error) {
	from = model.DateOf(from)
	to = model.DateOf(to)

	if from.After(to) {
		return nil, apperrors.InvalidRange("start date is after end date")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.maxRangeDays {
		return nil, apperrors.InvalidRange(fmt.Sprintf("date range exceeds %d days", s.maxRangeDays))
	}

	tmpl, err := s.scheduleRepo.GetTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var slots []model.Slot
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		daySlots, err := s.resolveDay(ctx, tmpl, date, now)
		if err != nil {
			return nil, err
		}
		slots = append(slots, daySlots...)
	}

	if s.metrics != nil {
		s.metrics.SlotResolutions.Inc()
		s.metrics.SlotsReturned.Observe(float64(len(slots)))
	}
	return slots, nil
}

// SlotBoundaries returns the valid slot start times for a single date,
// ignoring bookings. The booking service uses it to reject client-supplied
// times that do not fall on a derivable slot boundary.
func (s *Service) SlotBoundaries(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[model.TimeOfDay]struct{}, int, error) {
	tmpl, err := s.scheduleRepo.GetTemplate(ctx, doctorID)
	if err != nil {
		return nil, 0, err
	}

	date = model.DateOf(date)
	boundaries := make(map[model.TimeOfDay]struct{})
	if !tmpl.InEffect(date) {
		return boundaries, tmpl.SlotDurationMinutes, nil
	}
	for _, r := range baseRanges(tmpl, date) {
		for _, start := range partition(r, tmpl.SlotDurationMinutes) {
			boundaries[start] = struct{}{}
		}
	}
	return boundaries, tmpl.SlotDurationMinutes, nil
}

func (s *Service) resolveDay(ctx context.Context, tmpl *model.DoctorScheduleTemplate, date time.Time, now time.Time) ([]model.Slot, error) {
	if !tmpl.InEffect(date) {
		return nil, nil
	}

	ranges := baseRanges(tmpl, date)
	if len(ranges) == 0 {
		return nil, nil
	}

	taken, err := s.appointmentRepo.ActiveStartTimes(ctx, tmpl.DoctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read booking ledger: %w", err)
	}

	var slots []model.Slot
	for _, r := range ranges {
		for _, start := range partition(r, tmpl.SlotDurationMinutes) {
			end := start.Add(tmpl.SlotDurationMinutes)
			available := true
			if _, booked := taken[start]; booked {
				available = false
			}
			// A slot whose end has passed is gone, uniformly: end <= now.
			if !end.On(date).After(now) {
				available = false
			}
			slots = append(slots, model.Slot{
				Date:        date,
				StartTime:   start,
				EndTime:     end,
				IsAvailable: available,
			})
		}
	}
	return slots, nil
}

// baseRanges applies override precedence: an unavailable override blocks the
// date entirely; an extra hours override replaces the weekday template.
func baseRanges(tmpl *model.DoctorScheduleTemplate, date time.Time) []model.TimeRange {
	if override := tmpl.OverrideFor(date); override != nil {
		switch override.Type {
		case model.OverrideUnavailable:
			return nil
		case model.OverrideExtraHours:
			return override.Ranges
		}
	}
	return tmpl.WeeklyAvailability[date.Weekday()]
}

// partition cuts a working range into consecutive slot starts. A trailing
// remainder shorter than a full slot is dropped, never truncated.
func partition(r model.TimeRange, durationMinutes int) []model.TimeOfDay {
	var starts []model.TimeOfDay
	for start := r.Start; start.Add(durationMinutes) <= r.End; start = start.Add(durationMinutes) {
		starts = append(starts, start)
	}
	return starts
}
