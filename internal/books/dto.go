package books

import (
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
)

// BookDTO represents the catalog payload returned to clients.
type BookDTO struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Description     *string    `json:"description,omitempty"`
	ISBN            *string    `json:"isbn,omitempty"`
	Category        *string    `json:"category,omitempty"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	CoverURL        *string    `json:"cover_url,omitempty"`
	PDFURL          *string    `json:"pdf_url,omitempty"`
	OwnerID         *uuid.UUID `json:"owner_id,omitempty"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookListDTO is a cursor-paginated catalog page.
type BookListDTO struct {
	Items      []BookDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
	Total      int64     `json:"total"`
}

// CreateBookInput carries the fields accepted when publishing a book.
type CreateBookInput struct {
	Title           string  `json:"title" validate:"required,max=500"`
	Author          string  `json:"author" validate:"required,max=300"`
	Description     *string `json:"description" validate:"omitempty,max=10000"`
	ISBN            *string `json:"isbn" validate:"omitempty,max=20"`
	Category        *string `json:"category" validate:"omitempty,max=100"`
	PublicationYear *int    `json:"publication_year" validate:"omitempty,gte=0,lte=2100"`
	CoverURL        *string `json:"cover_url" validate:"omitempty,url,max=2048"`
	PDFURL          *string `json:"pdf_url" validate:"omitempty,url,max=2048"`
	TotalCopies     int     `json:"total_copies" validate:"omitempty,gte=1,lte=10000"`
}

// UpdateBookInput carries the editable catalog fields; nil means unchanged.
type UpdateBookInput struct {
	Title           *string `json:"title" validate:"omitempty,max=500"`
	Author          *string `json:"author" validate:"omitempty,max=300"`
	Description     *string `json:"description" validate:"omitempty,max=10000"`
	ISBN            *string `json:"isbn" validate:"omitempty,max=20"`
	Category        *string `json:"category" validate:"omitempty,max=100"`
	PublicationYear *int    `json:"publication_year" validate:"omitempty,gte=0,lte=2100"`
	CoverURL        *string `json:"cover_url" validate:"omitempty,url,max=2048"`
	PDFURL          *string `json:"pdf_url" validate:"omitempty,url,max=2048"`
}

// ListFilters narrows catalog listings.
type ListFilters struct {
	Category string
	Search   string
}

// UploadTarget pairs a signed upload URL with the public URL the object will
// have once uploaded.
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}

func toDTO(book *models.Book) BookDTO {
	return BookDTO{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Description:     book.Description,
		ISBN:            book.ISBN,
		Category:        book.Category,
		PublicationYear: book.PublicationYear,
		CoverURL:        book.CoverURL,
		PDFURL:          book.PDFURL,
		OwnerID:         book.OwnerID,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}
