package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduler-api/internal/config"
	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository/postgres"
	"github.com/clinicore/scheduler-api/pkg/security"
)

// Seeds the database with fake doctors, patients and weekly schedules for
// local development and load testing.
func main() {
	doctors := flag.Int("doctors", 10, "number of doctors to create")
	patients := flag.Int("patients", 50, "number of patients to create")
	seed := flag.Uint64("seed", 0, "deterministic seed, 0 for random")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	faker := gofakeit.New(*seed)
	hasher := security.NewBcryptHasher(0)

	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)

	ctx := context.Background()

	for i := 0; i < *doctors; i++ {
		doctor := &model.Doctor{
			ID:        uuid.New(),
			Name:      faker.Name(),
			Email:     faker.Email(),
			Specialty: faker.RandomString([]string{"cardiology", "dermatology", "pediatrics", "general"}),
		}
		if err := doctorRepo.Create(ctx, doctor); err != nil {
			log.Fatal().Err(err).Msg("failed to create doctor")
		}
		if err := scheduleRepo.UpsertTemplate(ctx, weekdayTemplate(doctor.ID)); err != nil {
			log.Fatal().Err(err).Msg("failed to create schedule")
		}
	}
	log.Info().Int("count", *doctors).Msg("seeded doctors")

	for i := 0; i < *patients; i++ {
		hash, err := hasher.Hash(faker.Password(true, true, true, false, false, 12))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to hash password")
		}
		patient := &model.Patient{
			ID:           uuid.New(),
			Name:         faker.Name(),
			Email:        faker.Email(),
			Phone:        faker.Phone(),
			PasswordHash: hash,
		}
		if err := patientRepo.Create(ctx, patient); err != nil {
			log.Fatal().Err(err).Msg("failed to create patient")
		}
	}
	log.Info().Int("count", *patients).Msg("seeded patients")
}

// weekdayTemplate covers Monday through Friday, nine to five with a lunch
// break, in 30 minute slots.
func weekdayTemplate(doctorID uuid.UUID) *model.DoctorScheduleTemplate {
	workday := []model.TimeRange{
		{Start: model.TimeOfDay(9 * 60), End: model.TimeOfDay(12 * 60)},
		{Start: model.TimeOfDay(13 * 60), End: model.TimeOfDay(17 * 60)},
	}

	weekly := model.WeeklyAvailability{}
	for day := time.Monday; day <= time.Friday; day++ {
		weekly[day] = workday
	}

	from := model.DateOf(time.Now().UTC())
	return &model.DoctorScheduleTemplate{
		DoctorID:            doctorID,
		WeeklyAvailability:  weekly,
		SlotDurationMinutes: 30,
		EffectiveFrom:       &from,
	}
}
