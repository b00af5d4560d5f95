package assignment

import (
	"context"

	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

// Repository defines persistence for the assignment config and audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetConfig(ctx context.Context) (*models.AutoAssignmentConfig, error)
	UpdateConfig(ctx context.Context, updates map[string]any) error
	AppendLog(ctx context.Context, entry *models.AssignmentLog) error
	LastAssignment(ctx context.Context) (*models.AssignmentLog, error)
	ListLogs(ctx context.Context, params pagination.Params) ([]models.AssignmentLog, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetConfig returns the singleton row. The migration seeds it, so a missing
// row surfaces as gorm.ErrRecordNotFound only on a broken database.
func (r *repository) GetConfig(ctx context.Context) (*models.AutoAssignmentConfig, error) {
	var config models.AutoAssignmentConfig
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) UpdateConfig(ctx context.Context, updates map[string]any) error {
	config, err := r.GetConfig(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.AutoAssignmentConfig{}).
		Where("id = ?", config.ID).
		Updates(updates).Error
}

func (r *repository) AppendLog(ctx context.Context, entry *models.AssignmentLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) LastAssignment(ctx context.Context) (*models.AssignmentLog, error) {
	var entry models.AssignmentLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListLogs(ctx context.Context, params pagination.Params) ([]models.AssignmentLog, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.AssignmentLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}
