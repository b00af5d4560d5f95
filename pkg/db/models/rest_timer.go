package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RestTimer is the shared pause-all-ads window. At most one row is active
// at a time; expired rows are kept for audit.
type RestTimer struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StartedAt        time.Time      `gorm:"column:started_at;not null"`
	DurationMinutes  int            `gorm:"column:duration_minutes;not null;default:60"`
	StartedBy        uuid.UUID      `gorm:"column:started_by;type:uuid;not null"`
	IsActive         bool           `gorm:"column:is_active;not null;default:true"`
	DeactivatedAdNos pq.StringArray `gorm:"column:deactivated_ad_nos;type:text[];not null;default:ARRAY[]::text[]"`
	EndedAt          *time.Time     `gorm:"column:ended_at"`
	EndedBy          *uuid.UUID     `gorm:"column:ended_by;type:uuid"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// ExpiresAt returns the wall-clock instant the rest window closes.
func (r RestTimer) ExpiresAt() time.Time {
	return r.StartedAt.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// ExpiredAt reports whether the window had closed by the given instant,
// regardless of the persisted is_active flag.
func (r RestTimer) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}
