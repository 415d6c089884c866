package reviews

import (
	"time"

	"github.com/google/uuid"
)

// ReviewDTO is one member's published rating of a book.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	UserID    uuid.UUID `json:"user_id"`
	Reviewer  string    `json:"reviewer,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewListDTO is a cursor-paginated page of reviews for one book.
type ReviewListDTO struct {
	Items      []ReviewDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	Total      int64       `json:"total"`
}

// SummaryDTO aggregates a book's ratings.
type SummaryDTO struct {
	BookID        uuid.UUID `json:"book_id"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int64     `json:"review_count"`
}

// SubmitReviewInput carries the fields accepted when rating a book.
// Resubmitting replaces the member's previous review.
type SubmitReviewInput struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}
