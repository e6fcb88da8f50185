package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusIsActive(t *testing.T) {
	assert.True(t, AppointmentStatusScheduled.IsActive())
	assert.True(t, AppointmentStatusConfirmed.IsActive())
	assert.True(t, AppointmentStatusInProgress.IsActive())
	assert.True(t, AppointmentStatusCompleted.IsActive())
	assert.False(t, AppointmentStatusCancelled.IsActive())
	assert.False(t, AppointmentStatusNoShow.IsActive())
}

func TestAppointmentStatusIsTerminal(t *testing.T) {
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())
	assert.False(t, AppointmentStatusScheduled.IsTerminal())
	assert.False(t, AppointmentStatusInProgress.IsTerminal())
}

func TestAppointmentStatusValid(t *testing.T) {
	assert.True(t, AppointmentStatusConfirmed.Valid())
	assert.False(t, AppointmentStatus("rescheduled").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}
