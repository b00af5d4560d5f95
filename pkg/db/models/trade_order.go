package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// TradeOrder mirrors a C2C order the desk is a counterparty to.
// Rows are upserted from the exchange feed; AssignedTo is owned locally.
type TradeOrder struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	TradeType   enums.TradeType   `gorm:"column:trade_type;type:text;not null"`
	Asset       string            `gorm:"column:asset;type:text;not null"`
	FiatUnit    string            `gorm:"column:fiat_unit;type:text;not null"`
	Quantity    decimal.Decimal   `gorm:"column:quantity;type:numeric(28,8);not null"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(20,2);not null"`
	TotalPrice  decimal.Decimal   `gorm:"column:total_price;type:numeric(20,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	// CounterpartyUID is the exchange account id of the other side, used by
	// the exchange-mapping eligibility filter. Empty when the feed omits it.
	CounterpartyUID string     `gorm:"column:counterparty_uid;type:text;not null;default:''"`
	AssignedTo      *uuid.UUID `gorm:"column:assigned_to;type:uuid;index"`
	AssignedAt      *time.Time `gorm:"column:assigned_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
