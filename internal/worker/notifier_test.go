package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository/memory"
	"github.com/clinicore/scheduler-api/pkg/logger"
)

type sentMail struct {
	kind string
	to   string
}

type fakeEmail struct {
	sent []sentMail
}

func (f *fakeEmail) SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	f.sent = append(f.sent, sentMail{kind: "confirmation", to: to})
	return nil
}

func (f *fakeEmail) SendCancellation(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	f.sent = append(f.sent, sentMail{kind: "cancellation", to: to})
	return nil
}

func (f *fakeEmail) SendReminder(ctx context.Context, to, patientName, doctorName, date, startTime string) error {
	f.sent = append(f.sent, sentMail{kind: "reminder", to: to})
	return nil
}

func TestNotifierHandle(t *testing.T) {
	ctx := context.Background()
	doctors := memory.NewDoctorRepository()
	patients := memory.NewPatientRepository()

	doctor := &model.Doctor{Name: "Dr. Vale", Email: "vale@clinic.test"}
	require.NoError(t, doctors.Create(ctx, doctor))
	patient := &model.Patient{Name: "Ada", Email: "ada@example.test", PasswordHash: "x"}
	require.NoError(t, patients.Create(ctx, patient))

	mail := &fakeEmail{}
	n := NewNotifier(nil, mail, doctors, patients, logger.NewLogger(nil))

	payload, err := json.Marshal(model.BookingEventPayload{
		AppointmentID: uuid.New(),
		DoctorID:      doctor.ID,
		PatientID:     patient.ID,
		Date:          "2026-03-02",
		StartTime:     "10:00",
	})
	require.NoError(t, err)

	require.NoError(t, n.handle(ctx, model.EventBookingCreated, payload))
	require.NoError(t, n.handle(ctx, model.EventBookingCancelled, payload))
	require.NoError(t, n.handle(ctx, model.EventAppointmentUpcoming, payload))

	require.Len(t, mail.sent, 3)
	assert.Equal(t, sentMail{kind: "confirmation", to: "ada@example.test"}, mail.sent[0])
	assert.Equal(t, sentMail{kind: "cancellation", to: "ada@example.test"}, mail.sent[1])
	assert.Equal(t, sentMail{kind: "reminder", to: "ada@example.test"}, mail.sent[2])
}

func TestNotifierHandleErrors(t *testing.T) {
	ctx := context.Background()
	doctors := memory.NewDoctorRepository()
	patients := memory.NewPatientRepository()
	n := NewNotifier(nil, &fakeEmail{}, doctors, patients, logger.NewLogger(nil))

	assert.Error(t, n.handle(ctx, model.EventBookingCreated, []byte("not json")))

	payload, err := json.Marshal(model.BookingEventPayload{
		AppointmentID: uuid.New(),
		DoctorID:      uuid.New(),
		PatientID:     uuid.New(),
	})
	require.NoError(t, err)
	assert.Error(t, n.handle(ctx, model.EventBookingCreated, payload), "unknown patient")
}
