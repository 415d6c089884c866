package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadingSession records one stretch of in-app reading for the stats page.
type ReadingSession struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:reading_sessions_user_id_idx"`
	BookID          uuid.UUID  `gorm:"column:book_id;type:uuid;not null"`
	StartedAt       time.Time  `gorm:"column:started_at;not null"`
	EndedAt         *time.Time `gorm:"column:ended_at"`
	DurationMinutes *int       `gorm:"column:duration_minutes"`
	PagesRead       *int       `gorm:"column:pages_read"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
