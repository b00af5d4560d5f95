package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// Operator is a desk employee who owns and works P2P trade orders.
type Operator struct {
	ID               uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string               `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string               `gorm:"column:password_hash;not null"`
	DisplayName      string               `gorm:"column:display_name;not null"`
	Role             enums.OperatorRole   `gorm:"column:role;type:text;not null;default:'operator'"`
	Specialization   enums.Specialization `gorm:"column:specialization;type:text;not null;default:'both'"`
	OnShift          bool                 `gorm:"column:on_shift;not null;default:false"`
	MinOrderSize     decimal.Decimal      `gorm:"column:min_order_size;type:numeric(20,2);not null;default:0"`
	MaxOrderSize     decimal.Decimal      `gorm:"column:max_order_size;type:numeric(20,2);not null;default:0"`
	ExchangeUIDs     pq.StringArray       `gorm:"column:exchange_uids;type:text[];not null;default:ARRAY[]::text[]"`
	ActiveOrderCount int                  `gorm:"column:active_order_count;not null;default:0"`
	IsActive         bool                 `gorm:"column:is_active;not null;default:true"`
	LastLoginAt      *time.Time           `gorm:"column:last_login_at"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
