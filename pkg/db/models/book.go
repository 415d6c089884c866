package models

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a catalog entry and its copy counts.
//
// available_copies is adjusted only by borrowing transitions and admin
// copy-count edits; it must equal total_copies minus the number of active
// borrowings for this book.
type Book struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string     `gorm:"column:title;not null"`
	Author          string     `gorm:"column:author;not null"`
	Description     *string    `gorm:"column:description"`
	ISBN            *string    `gorm:"column:isbn"`
	Category        *string    `gorm:"column:category"`
	PublicationYear *int       `gorm:"column:publication_year"`
	CoverURL        *string    `gorm:"column:cover_url"`
	PDFURL          *string    `gorm:"column:pdf_url"`
	OwnerID         *uuid.UUID `gorm:"column:owner_id;type:uuid"`
	TotalCopies     int        `gorm:"column:total_copies;not null;default:1"`
	AvailableCopies int        `gorm:"column:available_copies;not null;default:1"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
