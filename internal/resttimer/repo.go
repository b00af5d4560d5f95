package resttimer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
)

// Repository defines persistence for the shared rest window.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context) (*models.RestTimer, error)
	FindActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.RestTimer, error)
	Insert(ctx context.Context, timer *models.RestTimer) (*models.RestTimer, error)
	Deactivate(ctx context.Context, id uuid.UUID, endedBy *uuid.UUID, endedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rest timer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context) (*models.RestTimer, error) {
	var timer models.RestTimer
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&timer).Error
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

// FindActiveExpiredBefore returns still-flagged rows whose window closed
// before the cutoff. Fed to the expiry sweep job.
func (r *repository) FindActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.RestTimer, error) {
	var timers []models.RestTimer
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("started_at + (duration_minutes * INTERVAL '1 minute') <= ?", cutoff).
		Find(&timers).Error
	if err != nil {
		return nil, err
	}
	return timers, nil
}

func (r *repository) Insert(ctx context.Context, timer *models.RestTimer) (*models.RestTimer, error) {
	if err := r.db.WithContext(ctx).Create(timer).Error; err != nil {
		return nil, err
	}
	return timer, nil
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID, endedBy *uuid.UUID, endedAt time.Time) error {
	updates := map[string]any{
		"is_active": false,
		"ended_at":  endedAt,
	}
	if endedBy != nil {
		updates["ended_by"] = *endedBy
	}
	return r.db.WithContext(ctx).
		Model(&models.RestTimer{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates).Error
}
