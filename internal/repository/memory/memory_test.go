package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduler-api/internal/model"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

func TestAppointmentCreateConflictsOnActiveSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository()
	doctorID := uuid.New()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first := &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: model.NewTimeOfDay(9, 0),
		Status:    model.AppointmentStatusScheduled,
	}
	require.NoError(t, repo.Create(ctx, first))

	dup := &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: model.NewTimeOfDay(9, 0),
		Status:    model.AppointmentStatusScheduled,
	}
	err := repo.Create(ctx, dup)
	assert.True(t, apperrors.Is(err, apperrors.KindBookingConflict))

	// Same time, different doctor: no conflict.
	other := &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      date,
		StartTime: model.NewTimeOfDay(9, 0),
		Status:    model.AppointmentStatusScheduled,
	}
	assert.NoError(t, repo.Create(ctx, other))

	// Cancelling the first frees the slot.
	applied, err := repo.UpdateStatus(ctx, first.ID,
		model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, applied)
	assert.NoError(t, repo.Create(ctx, dup))
}

func TestActiveStartTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository()
	doctorID := uuid.New()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	booked := &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: model.NewTimeOfDay(10, 0),
		Status:    model.AppointmentStatusConfirmed,
	}
	require.NoError(t, repo.Create(ctx, booked))

	cancelled := &model.Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: model.NewTimeOfDay(10, 30),
		Status:    model.AppointmentStatusScheduled,
	}
	require.NoError(t, repo.Create(ctx, cancelled))
	applied, err := repo.UpdateStatus(ctx, cancelled.ID,
		model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, applied)

	taken, err := repo.ActiveStartTimes(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Contains(t, taken, model.NewTimeOfDay(10, 0))
	assert.NotContains(t, taken, model.NewTimeOfDay(10, 30))
}

func TestOutboxDeleteProcessedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository()

	old := &model.OutboxEvent{EventType: model.EventBookingCreated, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.UpdateStatus(ctx, old.ID, model.OutboxStatusProcessed, nil))

	fresh := &model.OutboxEvent{EventType: model.EventBookingCreated, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, fresh))

	removed, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)
}
