package worker

import (
	"context"
	"time"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
	"github.com/clinicore/scheduler-api/internal/service/event"
	"github.com/clinicore/scheduler-api/pkg/logger"
)

// ReminderScanner periodically looks for appointments entering the reminder
// window and emits an appointment.upcoming event for each. Consecutive scans
// cover disjoint half-open windows so an appointment is announced once.
type ReminderScanner struct {
	appointments repository.AppointmentRepository
	emitter      event.Emitter
	leadTime     time.Duration
	interval     time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

func NewReminderScanner(
	appointments repository.AppointmentRepository,
	emitter event.Emitter,
	leadTime, interval time.Duration,
	logger *logger.Logger,
) *ReminderScanner {
	if leadTime <= 0 {
		leadTime = 24 * time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReminderScanner{
		appointments: appointments,
		emitter:      emitter,
		leadTime:     leadTime,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ReminderScanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting reminder scanner", "lead_time", s.leadTime.String())

	cursor := s.now().Add(s.leadTime)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down reminder scanner")
			return
		case <-ticker.C:
			next := cursor.Add(s.interval)
			if err := s.scan(ctx, cursor, next); err != nil {
				s.logger.Error(err, "reminder scan failed")
				continue
			}
			cursor = next
		}
	}
}

// scan emits reminders for appointments starting in [from, to).
func (s *ReminderScanner) scan(ctx context.Context, from, to time.Time) error {
	appointments, err := s.appointments.FindUpcoming(ctx, from, to)
	if err != nil {
		return err
	}

	for _, appointment := range appointments {
		if !appointment.StartTime.On(appointment.Date).Before(to) {
			continue
		}
		payload := model.BookingEventPayload{
			AppointmentID: appointment.ID,
			DoctorID:      appointment.DoctorID,
			PatientID:     appointment.PatientID,
			Date:          appointment.Date.Format(model.DateLayout),
			StartTime:     appointment.StartTime.String(),
		}
		if err := s.emitter.Emit(ctx, model.EventAppointmentUpcoming, payload); err != nil {
			s.logger.Error(err, "failed to emit reminder",
				"appointment_id", appointment.ID.String())
		}
	}

	return nil
}
