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

func (r *scheduleRepository) GetTemplate(ctx context.Context, doctorID uuid.UUID) (*model.DoctorScheduleTemplate, error) {
	query := `
		SELECT doctor_id, weekly_availability, slot_duration_minutes,
			   effective_from, effective_to, created_at, updated_at
		FROM schedule_templates
		WHERE doctor_id = $1
	`
	var tmpl model.DoctorScheduleTemplate
	err := r.db.GetContext(ctx, &tmpl, query, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule template")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule template: %w", err)
	}

	overridesQuery := `
		SELECT id, doctor_id, date, type, ranges, created_at
		FROM schedule_overrides
		WHERE doctor_id = $1
		ORDER BY date ASC
	`
	if err := r.db.SelectContext(ctx, &tmpl.Overrides, overridesQuery, doctorID); err != nil {
		return nil, fmt.Errorf("failed to get schedule overrides: %w", err)
	}

	return &tmpl, nil
}

func (r *scheduleRepository) UpsertTemplate(ctx context.Context, tmpl *model.DoctorScheduleTemplate) error {
	query := `
		INSERT INTO schedule_templates (
			doctor_id, weekly_availability, slot_duration_minutes,
			effective_from, effective_to, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doctor_id) DO UPDATE SET
			weekly_availability = EXCLUDED.weekly_availability,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	tmpl.UpdatedAt = now
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		tmpl.DoctorID,
		tmpl.WeeklyAvailability,
		tmpl.SlotDurationMinutes,
		tmpl.EffectiveFrom,
		tmpl.EffectiveTo,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule template: %w", err)
	}
	return nil
}

func (r *scheduleRepository) AddOverride(ctx context.Context, override *model.ScheduleOverride) error {
	query := `
		INSERT INTO schedule_overrides (id, doctor_id, date, type, ranges, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	override.ID = uuid.New()
	override.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		override.ID,
		override.DoctorID,
		override.Date,
		override.Type,
		override.Ranges,
		override.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		// unique_violation on (doctor_id, date)
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.DuplicateOverride("an override already exists for this date")
		}
		return fmt.Errorf("failed to add schedule override: %w", err)
	}
	return nil
}

func (r *scheduleRepository) RemoveOverride(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	query := `
		DELETE FROM schedule_overrides
		WHERE doctor_id = $1 AND date = $2
	`
	result, err := r.db.ExecContext(ctx, query, doctorID, date)
	if err != nil {
		return fmt.Errorf("failed to remove schedule override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule override")
	}
	return nil
}
