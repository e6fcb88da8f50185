package cached

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository"
)

// DoctorRepository is a read-through cache in front of the doctor store.
// Doctor identity churns slowly, so a short TTL is safe; slots and
// appointments are never cached.
type DoctorRepository struct {
	inner repository.DoctorRepository
	cache *cache.Cache
}

func NewDoctorRepository(inner repository.DoctorRepository, ttl, cleanupInterval time.Duration) *DoctorRepository {
	return &DoctorRepository{
		inner: inner,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if err := r.inner.Create(ctx, doctor); err != nil {
		return err
	}
	r.cache.Set(doctor.ID.String(), doctor, cache.DefaultExpiration)
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if v, ok := r.cache.Get(id.String()); ok {
		return v.(*model.Doctor), nil
	}

	doctor, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	return r.inner.List(ctx)
}
