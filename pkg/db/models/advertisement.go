package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// Advertisement is the local mirror of a C2C ad, refreshed from the exchange.
// Status here trails the exchange by at most one sync.
type Advertisement struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AdNo      string          `gorm:"column:ad_no;type:text;not null;uniqueIndex"`
	TradeType enums.TradeType `gorm:"column:trade_type;type:text;not null"`
	Asset     string          `gorm:"column:asset;type:text;not null"`
	FiatUnit  string          `gorm:"column:fiat_unit;type:text;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,2);not null"`
	Status    enums.AdStatus  `gorm:"column:status;type:text;not null;default:'offline'"`
	SyncedAt  time.Time       `gorm:"column:synced_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
