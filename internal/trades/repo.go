package trades

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

// ErrAlreadyAssigned is returned when a claim races another assignment.
var ErrAlreadyAssigned = errors.New("order already assigned")

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status     *enums.OrderStatus
	AssignedTo *uuid.UUID
	Unassigned bool
}

// Repository defines persistence for mirrored orders and ads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertOrder(ctx context.Context, order *models.TradeOrder) (bool, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.TradeOrder, error)
	ListOpenUnassigned(ctx context.Context) ([]models.TradeOrder, error)
	ListOpenAssigned(ctx context.Context) ([]models.TradeOrder, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.TradeOrder, string, error)
	ClaimOrder(ctx context.Context, tx *gorm.DB, orderNumber string, operatorID uuid.UUID, at time.Time) error
	UpdateOrderStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) error
	UpsertAd(ctx context.Context, ad *models.Advertisement) error
	ListAds(ctx context.Context) ([]models.Advertisement, error)
	UpdateAdStatuses(ctx context.Context, adNos []string, status enums.AdStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a trades repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertOrder inserts or refreshes the exchange-owned columns. The locally
// owned assignment columns are never touched. Reports whether the row is new.
func (r *repository) UpsertOrder(ctx context.Context, order *models.TradeOrder) (bool, error) {
	var existing models.TradeOrder
	err := r.db.WithContext(ctx).
		Where("order_number = ?", order.OrderNumber).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"trade_type":       order.TradeType,
		"asset":            order.Asset,
		"fiat_unit":        order.FiatUnit,
		"quantity":         order.Quantity,
		"price":            order.Price,
		"total_price":      order.TotalPrice,
		"status":           order.Status,
		"counterparty_uid": order.CounterpartyUID,
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TradeOrder{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return false, err
	}

	order.ID = existing.ID
	order.AssignedTo = existing.AssignedTo
	order.AssignedAt = existing.AssignedAt
	order.CreatedAt = existing.CreatedAt
	return false, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.TradeOrder, error) {
	var order models.TradeOrder
	err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOpenUnassigned(ctx context.Context) ([]models.TradeOrder, error) {
	var orders []models.TradeOrder
	err := r.db.WithContext(ctx).
		Where("assigned_to IS NULL").
		Where("status IN ?", openStatuses()).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListOpenAssigned(ctx context.Context) ([]models.TradeOrder, error) {
	var orders []models.TradeOrder
	err := r.db.WithContext(ctx).
		Where("assigned_to IS NOT NULL").
		Where("status IN ?", openStatuses()).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.TradeOrder, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.Unassigned {
		query = query.Where("assigned_to IS NULL")
	}

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

	var orders []models.TradeOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, next, nil
}

// ClaimOrder marks the order owned by the operator. The guard on assigned_to
// makes concurrent claims lose cleanly.
func (r *repository) ClaimOrder(ctx context.Context, tx *gorm.DB, orderNumber string, operatorID uuid.UUID, at time.Time) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Model(&models.TradeOrder{}).
		Where("order_number = ? AND assigned_to IS NULL", orderNumber).
		Updates(map[string]any{
			"assigned_to": operatorID,
			"assigned_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyAssigned
	}
	return nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TradeOrder{}).
		Where("order_number = ?", orderNumber).
		Update("status", status).Error
}

func (r *repository) UpsertAd(ctx context.Context, ad *models.Advertisement) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ad_no"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trade_type", "asset", "fiat_unit", "price", "status", "synced_at", "updated_at",
		}),
	}).Create(ad).Error
}

func (r *repository) ListAds(ctx context.Context) ([]models.Advertisement, error) {
	var ads []models.Advertisement
	err := r.db.WithContext(ctx).
		Order("ad_no ASC").
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *repository) UpdateAdStatuses(ctx context.Context, adNos []string, status enums.AdStatus) error {
	if len(adNos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Advertisement{}).
		Where("ad_no IN ?", adNos).
		Update("status", status).Error
}

func openStatuses() []enums.OrderStatus {
	return []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusPaid,
		enums.OrderStatusAppealing,
	}
}
