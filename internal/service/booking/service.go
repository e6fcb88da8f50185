package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
	"github.com/clinicore/scheduler-api/internal/service/availability"
	"github.com/clinicore/scheduler-api/internal/service/event"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
	"github.com/clinicore/scheduler-api/pkg/locker"
	"github.com/clinicore/scheduler-api/pkg/metrics"
)

// Service commits slot reservations and drives the appointment state machine.
type Service struct {
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	availabilitySvc *availability.Service
	events          event.Emitter
	locks           locker.Locker
	metrics         *metrics.Metrics
	now             func() time.Time
}

type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	availabilitySvc *availability.Service,
	events event.Emitter,
	locks locker.Locker,
	opts ...Option,
) *Service {
	s := &Service{
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		availabilitySvc: availabilitySvc,
		events:          events,
		locks:           locks,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookSlot validates and commits a reservation for (doctor, date, start).
// The slot grid is recomputed from the template; client-supplied times that
// fall off a slot boundary are rejected. Among concurrent callers for the
// same slot exactly one wins, the rest get a BookingConflict.
func (s *Service) BookSlot(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, start model.TimeOfDay, reason string) (*model.Appointment, error) {
	date = model.DateOf(date)

	if _, err := s.patientRepo.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.doctorRepo.Get(ctx, doctorID); err != nil {
		return nil, err
	}

	boundaries, duration, err := s.availabilitySvc.SlotBoundaries(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if _, ok := boundaries[start]; !ok {
		return nil, apperrors.InvalidSlot(fmt.Sprintf("%s on %s is not a bookable slot for this doctor", start, date.Format(model.DateLayout)))
	}
	if !start.Add(duration).On(date).After(s.now()) {
		return nil, apperrors.SlotExpired("slot has already elapsed")
	}

	appointment := &model.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		Status:    model.AppointmentStatusScheduled,
		Reason:    reason,
	}

	// The per-slot lock fails contenders fast; the ledger's unique constraint
	// on active (doctor, date, start) is what actually guarantees at most one
	// winner even across instances that bypass the lock.
	err = s.locks.WithLock(ctx, slotLockKey(doctorID, date, start), func(lockCtx context.Context) error {
		return s.appointmentRepo.Create(lockCtx, appointment)
	})
	if err != nil {
		if errors.Is(err, locker.ErrLockNotAcquired) {
			s.countConflict()
			return nil, apperrors.BookingConflict("slot is currently being booked")
		}
		if apperrors.Is(err, apperrors.KindBookingConflict) {
			s.countConflict()
			return nil, err
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.emit(ctx, model.EventBookingCreated, appointment)

	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointmentRepo.Get(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointmentRepo.List(ctx, filters)
}

func (s *Service) emit(ctx context.Context, eventType string, appointment *model.Appointment) {
	payload := model.BookingEventPayload{
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		PatientID:     appointment.PatientID,
		Date:          appointment.Date.Format(model.DateLayout),
		StartTime:     appointment.StartTime.String(),
	}
	// Fire and forget: a notification failure never invalidates the booking.
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointment.ID.String()).
			Msg("failed to emit booking event")
	}
}

func (s *Service) countConflict() {
	if s.metrics != nil {
		s.metrics.BookingConflicts.Inc()
	}
}

func slotLockKey(doctorID uuid.UUID, date time.Time, start model.TimeOfDay) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date.Format(model.DateLayout), start)
}
