package reading

import (
	"time"

	"github.com/google/uuid"
)

// SessionDTO is one stretch of in-app reading.
type SessionDTO struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	BookID          uuid.UUID  `json:"book_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	PagesRead       *int       `json:"pages_read,omitempty"`
}

// EndSessionInput closes a session, optionally recording pages read.
type EndSessionInput struct {
	PagesRead *int `json:"pages_read" validate:"omitempty,gte=0,lte=100000"`
}

// StatsDTO aggregates a member's reading history.
type StatsDTO struct {
	TotalSessions  int64        `json:"total_sessions"`
	TotalMinutes   int64        `json:"total_minutes"`
	TotalPages     int64        `json:"total_pages"`
	RecentSessions []SessionDTO `json:"recent_sessions"`
}
