package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// AssignmentLog is the append-only audit trail of auto-assignment decisions.
// The latest entry also feeds round-robin tie-breaking.
type AssignmentLog struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string                   `gorm:"column:order_number;type:text;not null;index"`
	AssignedTo    uuid.UUID                `gorm:"column:assigned_to;type:uuid;not null"`
	StrategyUsed  enums.AssignmentStrategy `gorm:"column:strategy_used;type:text;not null"`
	EligibleCount int                      `gorm:"column:eligible_count;not null"`
	Reason        string                   `gorm:"column:reason;type:text;not null"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime;index"`
}
