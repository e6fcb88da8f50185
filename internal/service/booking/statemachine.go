package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/model"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

// allowedTransitions is the appointment lifecycle. Completed, cancelled and
// no_show are terminal.
var allowedTransitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusScheduled: {
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusNoShow,
	},
	model.AppointmentStatusConfirmed: {
		model.AppointmentStatusInProgress,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusNoShow,
	},
	model.AppointmentStatusInProgress: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
	},
}

func transitionAllowed(from, to model.AppointmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// authorizeTransition enforces role restrictions with an exhaustive switch on
// the closed role set. Patients act only on their own appointments.
func authorizeTransition(actor model.Actor, appointment *model.Appointment, to model.AppointmentStatus) error {
	from := appointment.Status
	switch actor.Role {
	case model.RoleDoctor, model.RoleReceptionist, model.RoleAdmin:
		return nil
	case model.RolePatient:
		if actor.ID != appointment.PatientID {
			return apperrors.Forbidden("patients may only act on their own appointments")
		}
		if to != model.AppointmentStatusCancelled {
			return apperrors.Forbidden("patients may only cancel appointments")
		}
		if from != model.AppointmentStatusScheduled && from != model.AppointmentStatusConfirmed {
			return apperrors.Forbidden("appointment can no longer be cancelled by the patient")
		}
		return nil
	default:
		return apperrors.Forbidden(fmt.Sprintf("unknown role %q", actor.Role))
	}
}

// Transition moves an appointment through its state machine. The status
// update is a compare-and-set on the previous status, so a concurrent
// transition loses cleanly instead of clobbering.
func (s *Service) Transition(ctx context.Context, appointmentID uuid.UUID, target model.AppointmentStatus, actor model.Actor, cancelReason string) (*model.Appointment, error) {
	if !target.Valid() {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("unknown status %q", target))
	}

	appointment, err := s.appointmentRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appointment.Status, target) {
		return nil, apperrors.InvalidTransition(fmt.Sprintf(
			"cannot transition from %s to %s", appointment.Status, target,
		))
	}

	if err := authorizeTransition(actor, appointment, target); err != nil {
		s.countTransition(target, "forbidden")
		return nil, err
	}

	var reason *string
	if target == model.AppointmentStatusCancelled && cancelReason != "" {
		reason = &cancelReason
	}

	applied, err := s.appointmentRepo.UpdateStatus(ctx, appointmentID, appointment.Status, target, reason)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !applied {
		s.countTransition(target, "lost_race")
		return nil, apperrors.InvalidTransition("appointment status changed concurrently, re-fetch and retry")
	}

	updated, err := s.appointmentRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	s.countTransition(target, "success")
	if target == model.AppointmentStatusCancelled {
		// The slot is free again; the next availability resolve sees it.
		s.emit(ctx, model.EventBookingCancelled, updated)
	}

	return updated, nil
}

func (s *Service) countTransition(target model.AppointmentStatus, status string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(target), status).Inc()
	}
}
