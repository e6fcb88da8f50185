package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

const (
	MinSlotDurationMinutes = 5
	MaxSlotDurationMinutes = 240
)

// Service manages doctors' weekly templates and date overrides. Pure data
// management; slot computation lives in the availability service.
type Service struct {
	repo       repository.ScheduleRepository
	doctorRepo repository.DoctorRepository
}

func NewService(repo repository.ScheduleRepository, doctorRepo repository.DoctorRepository) *Service {
	return &Service{
		repo:       repo,
		doctorRepo: doctorRepo,
	}
}

func (s *Service) GetTemplate(ctx context.Context, doctorID uuid.UUID) (*model.DoctorScheduleTemplate, error) {
	return s.repo.GetTemplate(ctx, doctorID)
}

func (s *Service) UpsertWeeklyAvailability(ctx context.Context, tmpl *model.DoctorScheduleTemplate) (*model.DoctorScheduleTemplate, error) {
	if _, err := s.doctorRepo.Get(ctx, tmpl.DoctorID); err != nil {
		return nil, err
	}

	if err := validateTemplate(tmpl); err != nil {
		return nil, err
	}

	// Keep each weekday's ranges ordered by start time.
	for day := range tmpl.WeeklyAvailability {
		ranges := tmpl.WeeklyAvailability[day]
		sort.Slice(ranges, func(i, j int) bool {
			return ranges[i].Start < ranges[j].Start
		})
	}

	if err := s.repo.UpsertTemplate(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to upsert template: %w", err)
	}
	return s.repo.GetTemplate(ctx, tmpl.DoctorID)
}

func (s *Service) AddOverride(ctx context.Context, doctorID uuid.UUID, date time.Time, overrideType model.OverrideType, ranges []model.TimeRange) (*model.ScheduleOverride, error) {
	if _, err := s.repo.GetTemplate(ctx, doctorID); err != nil {
		return nil, err
	}

	switch overrideType {
	case model.OverrideUnavailable:
		if len(ranges) > 0 {
			return nil, apperrors.InvalidTemplate("an unavailable override must not carry ranges")
		}
	case model.OverrideExtraHours:
		if len(ranges) == 0 {
			return nil, apperrors.InvalidTemplate("an extra hours override requires at least one range")
		}
		if err := validateRanges(ranges); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.InvalidTemplate(fmt.Sprintf("unknown override type %q", overrideType))
	}

	override := &model.ScheduleOverride{
		DoctorID: doctorID,
		Date:     model.DateOf(date),
		Type:     overrideType,
		Ranges:   ranges,
	}
	if err := s.repo.AddOverride(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

func (s *Service) RemoveOverride(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	return s.repo.RemoveOverride(ctx, doctorID, model.DateOf(date))
}

func validateTemplate(tmpl *model.DoctorScheduleTemplate) error {
	if tmpl.SlotDurationMinutes < MinSlotDurationMinutes || tmpl.SlotDurationMinutes > MaxSlotDurationMinutes {
		return apperrors.InvalidTemplate(fmt.Sprintf(
			"slot duration must be between %d and %d minutes",
			MinSlotDurationMinutes, MaxSlotDurationMinutes,
		))
	}

	if tmpl.EffectiveFrom != nil && tmpl.EffectiveTo != nil && tmpl.EffectiveTo.Before(*tmpl.EffectiveFrom) {
		return apperrors.InvalidTemplate("effective_to precedes effective_from")
	}

	for day, ranges := range tmpl.WeeklyAvailability {
		if day < time.Sunday || day > time.Saturday {
			return apperrors.InvalidTemplate(fmt.Sprintf("invalid weekday %d", day))
		}
		if err := validateRanges(ranges); err != nil {
			return err
		}
	}
	return nil
}

func validateRanges(ranges []model.TimeRange) error {
	sorted := append([]model.TimeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i, r := range sorted {
		if r.Start >= r.End {
			return apperrors.InvalidTemplate(fmt.Sprintf("range %s-%s has no duration", r.Start, r.End))
		}
		if r.Start < 0 || r.End > model.NewTimeOfDay(24, 0) {
			return apperrors.InvalidTemplate(fmt.Sprintf("range %s-%s falls outside the day", r.Start, r.End))
		}
		if i > 0 && r.Start < sorted[i-1].End {
			return apperrors.InvalidTemplate(fmt.Sprintf(
				"ranges %s-%s and %s-%s overlap",
				sorted[i-1].Start, sorted[i-1].End, r.Start, r.End,
			))
		}
	}
	return nil
}
