package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduler-api/internal/model"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to model.AppointmentStatus
		want     bool
	}{
		{model.AppointmentStatusScheduled, model.AppointmentStatusConfirmed, true},
		{model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusScheduled, model.AppointmentStatusNoShow, true},
		{model.AppointmentStatusScheduled, model.AppointmentStatusCompleted, false},
		{model.AppointmentStatusScheduled, model.AppointmentStatusInProgress, false},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusInProgress, true},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, false},
		{model.AppointmentStatusInProgress, model.AppointmentStatusCompleted, true},
		{model.AppointmentStatusInProgress, model.AppointmentStatusNoShow, false},
		// Terminal states never move.
		{model.AppointmentStatusCompleted, model.AppointmentStatusCancelled, false},
		{model.AppointmentStatusCancelled, model.AppointmentStatusScheduled, false},
		{model.AppointmentStatusNoShow, model.AppointmentStatusScheduled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, transitionAllowed(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestAuthorizeTransition(t *testing.T) {
	patientID := uuid.New()
	at := func(status model.AppointmentStatus) *model.Appointment {
		return &model.Appointment{PatientID: patientID, Status: status}
	}

	staffRoles := []model.Role{model.RoleDoctor, model.RoleReceptionist, model.RoleAdmin}
	for _, role := range staffRoles {
		actor := model.Actor{ID: uuid.New(), Role: role}
		assert.NoError(t, authorizeTransition(actor, at(model.AppointmentStatusInProgress), model.AppointmentStatusCompleted), role)
		assert.NoError(t, authorizeTransition(actor, at(model.AppointmentStatusScheduled), model.AppointmentStatusNoShow), role)
	}

	patient := model.Actor{ID: patientID, Role: model.RolePatient}
	assert.NoError(t, authorizeTransition(patient, at(model.AppointmentStatusScheduled), model.AppointmentStatusCancelled))
	assert.NoError(t, authorizeTransition(patient, at(model.AppointmentStatusConfirmed), model.AppointmentStatusCancelled))

	err := authorizeTransition(patient, at(model.AppointmentStatusScheduled), model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	err = authorizeTransition(patient, at(model.AppointmentStatusInProgress), model.AppointmentStatusCancelled)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	stranger := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	err = authorizeTransition(stranger, at(model.AppointmentStatusScheduled), model.AppointmentStatusCancelled)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	unknown := model.Actor{ID: uuid.New(), Role: model.Role("auditor")}
	err = authorizeTransition(unknown, at(model.AppointmentStatusScheduled), model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestTransitionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	receptionist := model.Actor{ID: uuid.New(), Role: model.RoleReceptionist}

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(9, 0), "")
	require.NoError(t, err)

	for _, next := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusInProgress,
		model.AppointmentStatusCompleted,
	} {
		appointment, err = f.svc.Transition(ctx, appointment.ID, next, receptionist, "")
		require.NoError(t, err)
		assert.Equal(t, next, appointment.Status)
	}

	// Completed is terminal.
	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusCancelled, receptionist, "")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidTransition))
}

func TestTransitionRejectsInvalidTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(9, 0), "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatus("rescheduled"), admin, "")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidTransition))

	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusCompleted, admin, "")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidTransition))

	_, err = f.svc.Transition(ctx, uuid.New(), model.AppointmentStatusConfirmed, admin, "")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestTransitionPatientCancelOwnBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient := model.Actor{ID: f.patientID, Role: model.RolePatient}

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(10, 0), "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusConfirmed, patient, "")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	updated, err := f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusCancelled, patient, "conflict")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
}

func TestTransitionPatientCannotCancelOthersBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	otherPatient := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(10, 30), "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusCancelled, otherPatient, "")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	kept, err := f.appointments.Get(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, kept.Status)
}

func TestTransitionCancelEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(11, 0), "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, appointment.ID, model.AppointmentStatusCancelled, admin, "")
	require.NoError(t, err)

	pending, err := f.outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.EventBookingCreated, pending[0].EventType)
	assert.Equal(t, model.EventBookingCancelled, pending[1].EventType)
}

func TestTransitionLostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appointment, err := f.svc.BookSlot(ctx, f.patientID, f.doctorID, monday, model.NewTimeOfDay(11, 30), "")
	require.NoError(t, err)

	// Another actor moves the appointment between the read and the update.
	applied, err := f.appointments.UpdateStatus(ctx, appointment.ID,
		model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.appointments.UpdateStatus(ctx, appointment.ID,
		model.AppointmentStatusScheduled, model.AppointmentStatusConfirmed, nil)
	require.NoError(t, err)
	assert.False(t, applied, "compare-and-set must not apply on a stale status")
}
