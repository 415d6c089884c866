package models

import (
	"time"

	"github.com/google/uuid"
)

// BookReview stores one member's rating of one book; resubmits overwrite.
type BookReview struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null;index:book_reviews_book_id_idx;uniqueIndex:book_reviews_book_user_key"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:book_reviews_book_user_key"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
