package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite links a member to a liked book.
type Favorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:favorites_user_id_idx;uniqueIndex:favorites_user_book_key"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null;index:favorites_book_id_idx;uniqueIndex:favorites_user_book_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
