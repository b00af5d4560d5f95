package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
)

// Repository defines persistence operations for the operator roster.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	FindByEmail(ctx context.Context, email string) (*models.Operator, error)
	Create(ctx context.Context, operator *models.Operator) (*models.Operator, error)
	UpdateShift(ctx context.Context, id uuid.UUID, onShift bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementActiveOrders(ctx context.Context, id uuid.UUID) error
	DecrementActiveOrders(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a roster repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context) ([]models.Operator, error) {
	var operators []models.Operator
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("active_order_count ASC").
		Order("display_name ASC").
		Find(&operators).Error
	if err != nil {
		return nil, err
	}
	return operators, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&operator).Error
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var operator models.Operator
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&operator).Error
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func (r *repository) Create(ctx context.Context, operator *models.Operator) (*models.Operator, error) {
	if err := r.db.WithContext(ctx).Create(operator).Error; err != nil {
		return nil, err
	}
	return operator, nil
}

func (r *repository) UpdateShift(ctx context.Context, id uuid.UUID, onShift bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("id = ?", id).
		Update("on_shift", onShift).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (r *repository) IncrementActiveOrders(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("id = ?", id).
		Update("active_order_count", gorm.Expr("active_order_count + 1")).Error
}

func (r *repository) DecrementActiveOrders(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("id = ? AND active_order_count > 0", id).
		Update("active_order_count", gorm.Expr("active_order_count - 1")).Error
}
