package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/model"
)

// All repository interfaces in one file
type (
	// ScheduleRepository stores weekly templates and their date overrides.
	ScheduleRepository interface {
		GetTemplate(ctx context.Context, doctorID uuid.UUID) (*model.DoctorScheduleTemplate, error)
		UpsertTemplate(ctx context.Context, tmpl *model.DoctorScheduleTemplate) error
		AddOverride(ctx context.Context, override *model.ScheduleOverride) error
		RemoveOverride(ctx context.Context, doctorID uuid.UUID, date time.Time) error
	}

	// AppointmentRepository is the booking ledger. Create must be atomic:
	// at most one active appointment per (doctor, date, start time), with a
	// violation reported as a BookingConflict error.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateStatus is a compare-and-set: it only applies when the stored
		// status still equals from, and reports whether it did.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ActiveStartTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[model.TimeOfDay]struct{}, error)
		FindUpcoming(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
