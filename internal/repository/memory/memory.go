package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/model"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

// In-memory repositories with the same conflict semantics as the postgres
// implementations. Used by unit tests and local development without a database.

type ScheduleRepository struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*model.DoctorScheduleTemplate
	overrides map[uuid.UUID][]model.ScheduleOverride
}

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{
		templates: make(map[uuid.UUID]*model.DoctorScheduleTemplate),
		overrides: make(map[uuid.UUID][]model.ScheduleOverride),
	}
}

func (r *ScheduleRepository) GetTemplate(ctx context.Context, doctorID uuid.UUID) (*model.DoctorScheduleTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[doctorID]
	if !ok {
		return nil, apperrors.NotFound("schedule template")
	}

	cp := *tmpl
	cp.Overrides = append([]model.ScheduleOverride(nil), r.overrides[doctorID]...)
	return &cp, nil
}

func (r *ScheduleRepository) UpsertTemplate(ctx context.Context, tmpl *model.DoctorScheduleTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	tmpl.UpdatedAt = now
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	cp := *tmpl
	cp.Overrides = nil
	r.templates[tmpl.DoctorID] = &cp
	return nil
}

func (r *ScheduleRepository) AddOverride(ctx context.Context, override *model.ScheduleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.overrides[override.DoctorID] {
		if model.SameDate(existing.Date, override.Date) {
			return apperrors.DuplicateOverride("an override already exists for this date")
		}
	}

	override.ID = uuid.New()
	override.CreatedAt = time.Now()
	r.overrides[override.DoctorID] = append(r.overrides[override.DoctorID], *override)
	return nil
}

func (r *ScheduleRepository) RemoveOverride(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.overrides[doctorID]
	for i, existing := range list {
		if model.SameDate(existing.Date, date) {
			r.overrides[doctorID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("schedule override")
}

type AppointmentRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{
		appointments: make(map[uuid.UUID]*model.Appointment),
	}
}

func slotKey(doctorID uuid.UUID, date time.Time, start model.TimeOfDay) string {
	return fmt.Sprintf("%s:%s:%s", doctorID, date.Format(model.DateLayout), start)
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey(appointment.DoctorID, appointment.Date, appointment.StartTime)
	for _, existing := range r.appointments {
		if existing.Status.IsActive() && slotKey(existing.DoctorID, existing.Date, existing.StartTime) == key {
			return apperrors.BookingConflict("slot is already booked")
		}
	}

	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()
	cp := *appointment
	r.appointments[appointment.ID] = &cp
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	cp := *appointment
	return &cp, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.appointments[id]
	if !ok || appointment.Status != from {
		return false, nil
	}

	appointment.Status = to
	if cancelReason != nil {
		appointment.CancelReason = cancelReason
	}
	appointment.UpdatedAt = time.Now()
	return true, nil
}

func (r *AppointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, appointment := range r.appointments {
		if filters.DoctorID != uuid.Nil && appointment.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && appointment.PatientID != filters.PatientID {
			continue
		}
		if filters.Status != "" && appointment.Status != filters.Status {
			continue
		}
		if filters.Date != nil && !model.SameDate(appointment.Date, *filters.Date) {
			continue
		}
		cp := *appointment
		out = append(out, &cp)
	}

	sortAppointments(out)
	return out, nil
}

func (r *AppointmentRepository) ActiveStartTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[model.TimeOfDay]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := make(map[model.TimeOfDay]struct{})
	for _, appointment := range r.appointments {
		if appointment.DoctorID == doctorID && model.SameDate(appointment.Date, date) && appointment.Status.IsActive() {
			taken[appointment.StartTime] = struct{}{}
		}
	}
	return taken, nil
}

func (r *AppointmentRepository) FindUpcoming(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, appointment := range r.appointments {
		if appointment.Status != model.AppointmentStatusScheduled && appointment.Status != model.AppointmentStatusConfirmed {
			continue
		}
		at := appointment.StartTime.On(appointment.Date)
		if !at.Before(from) && !at.After(to) {
			cp := *appointment
			out = append(out, &cp)
		}
	}

	sortAppointments(out)
	return out, nil
}

func sortAppointments(list []*model.Appointment) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0; j-- {
			a, b := list[j-1], list[j]
			if a.Date.After(b.Date) || (model.SameDate(a.Date, b.Date) && a.StartTime > b.StartTime) {
				list[j-1], list[j] = b, a
			}
		}
	}
}

type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()
	cp := *doctor
	r.doctors[doctor.ID] = &cp
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doctor, ok := r.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor")
	}
	cp := *doctor
	return &cp, nil
}

func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, doctor := range r.doctors {
		cp := *doctor
		out = append(out, &cp)
	}
	return out, nil
}

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*model.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()
	cp := *patient
	r.patients[patient.ID] = &cp
	return nil
}

func (r *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patient, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient")
	}
	cp := *patient
	return &cp, nil
}

type OutboxRepository struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	event.Status = model.OutboxStatusPending
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for _, event := range r.events {
		if event.Status == model.OutboxStatusPending {
			cp := *event
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.events {
		if event.ID == id {
			event.Status = status
			event.ErrorMessage = errMessage
			if status == model.OutboxStatusFailed {
				event.RetryCount++
			}
			if status == model.OutboxStatusProcessed {
				now := time.Now()
				event.ProcessedAt = &now
			}
			event.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("outbox event")
}

func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*model.OutboxEvent
	var removed int64
	for _, event := range r.events {
		if event.Status == model.OutboxStatusProcessed && event.ProcessedAt != nil && event.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return removed, nil
}
