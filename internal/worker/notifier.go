package worker

import (
	"context"
	"encoding/json"

	"github.com/clinicore/scheduler-api/internal/email"
	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
	"github.com/clinicore/scheduler-api/pkg/logger"
	"github.com/clinicore/scheduler-api/pkg/messaging"
)

// Notifier consumes booking events from the broker and sends the matching
// email to the patient. Delivery is best effort: a failed send is logged and
// the event is dropped, not retried.
type Notifier struct {
	broker   messaging.Broker
	email    email.Service
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	logger   *logger.Logger
}

func NewNotifier(
	broker messaging.Broker,
	email email.Service,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	logger *logger.Logger,
) *Notifier {
	return &Notifier{
		broker:   broker,
		email:    email,
		doctors:  doctors,
		patients: patients,
		logger:   logger,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	channels := []string{
		model.EventBookingCreated,
		model.EventBookingCancelled,
		model.EventAppointmentUpcoming,
	}

	for _, channel := range channels {
		messages, err := n.broker.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		go n.consume(ctx, channel, messages)
	}

	n.logger.Info("notifier subscribed", "channels", len(channels))
	<-ctx.Done()
	return nil
}

func (n *Notifier) consume(ctx context.Context, channel string, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			if err := n.handle(ctx, channel, raw); err != nil {
				n.logger.Error(err, "failed to handle event", "channel", channel)
			}
		}
	}
}

func (n *Notifier) handle(ctx context.Context, channel string, raw []byte) error {
	var payload model.BookingEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	patient, err := n.patients.Get(ctx, payload.PatientID)
	if err != nil {
		return err
	}
	doctor, err := n.doctors.Get(ctx, payload.DoctorID)
	if err != nil {
		return err
	}

	switch channel {
	case model.EventBookingCreated:
		return n.email.SendBookingConfirmation(ctx, patient.Email, patient.Name, doctor.Name, payload.Date, payload.StartTime)
	case model.EventBookingCancelled:
		return n.email.SendCancellation(ctx, patient.Email, patient.Name, doctor.Name, payload.Date, payload.StartTime)
	case model.EventAppointmentUpcoming:
		return n.email.SendReminder(ctx, patient.Email, patient.Name, doctor.Name, payload.Date, payload.StartTime)
	}

	n.logger.Warn("unhandled event channel", "channel", channel)
	return nil
}
