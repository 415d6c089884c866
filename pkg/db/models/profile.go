package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the member record backing authentication and display names.
type Profile struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:profiles_email_key"`
	FullName     *string   `gorm:"column:full_name"`
	AvatarURL    *string   `gorm:"column:avatar_url"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
