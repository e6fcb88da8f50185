package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicore/scheduler-api/internal/model"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

// Create inserts a new appointment. A partial unique index on
// (doctor_id, date, start_time) over active statuses makes the insert the
// serialization point: the loser of a concurrent race gets a unique violation,
// surfaced as a BookingConflict.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, date, start_time,
			status, reason, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Date,
		appointment.StartTime,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.BookingConflict("slot is already booked")
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, date, start_time,
			   status, reason, notes, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1,
			cancel_reason = COALESCE($2, cancel_reason),
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, to, cancelReason, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, date, start_time,
			   status, reason, notes, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters.Date != nil {
		query += fmt.Sprintf(" AND date = $%d", argCount)
		args = append(args, *filters.Date)
		argCount++
	}

	query += " ORDER BY date ASC, start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ActiveStartTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[model.TimeOfDay]struct{}, error) {
	query := `
		SELECT start_time
		FROM appointments
		WHERE doctor_id = $1
		AND date = $2
		AND status = ANY($3)
	`
	statuses := make(pq.StringArray, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		statuses = append(statuses, string(s))
	}

	var times []model.TimeOfDay
	err := r.db.SelectContext(ctx, &times, query, doctorID, date, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to get active appointments: %w", err)
	}

	taken := make(map[model.TimeOfDay]struct{}, len(times))
	for _, t := range times {
		taken[t] = struct{}{}
	}
	return taken, nil
}

func (r *appointmentRepository) FindUpcoming(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, date, start_time,
			   status, reason, notes, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed')
		AND (date + start_time) BETWEEN $1 AND $2
		ORDER BY date ASC, start_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find upcoming appointments: %w", err)
	}
	return appointments, nil
}
