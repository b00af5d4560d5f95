package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

// AutoAssignmentConfig is the administrator-edited singleton that controls
// whether and how new orders are routed to operators.
type AutoAssignmentConfig struct {
	ID                      uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IsEnabled               bool                     `gorm:"column:is_enabled;not null;default:false"`
	Strategy                enums.AssignmentStrategy `gorm:"column:strategy;type:text;not null;default:'least_workload'"`
	MaxOrdersPerOperator    int                      `gorm:"column:max_orders_per_operator;not null;default:5"`
	ConsiderSpecialization  bool                     `gorm:"column:consider_specialization;not null;default:true"`
	ConsiderShift           bool                     `gorm:"column:consider_shift;not null;default:true"`
	ConsiderSizeRange       bool                     `gorm:"column:consider_size_range;not null;default:false"`
	ConsiderExchangeMapping bool                     `gorm:"column:consider_exchange_mapping;not null;default:false"`
	CooldownMinutes         int                      `gorm:"column:cooldown_minutes;not null;default:0"`
	UpdatedBy               *uuid.UUID               `gorm:"column:updated_by;type:uuid"`
	CreatedAt               time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
