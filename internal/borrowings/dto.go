package borrowings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// BorrowingDTO is the loan payload returned to clients.
type BorrowingDTO struct {
	ID             uuid.UUID             `json:"id"`
	BookID         uuid.UUID             `json:"book_id"`
	UserID         uuid.UUID             `json:"user_id"`
	BorrowedAt     time.Time             `json:"borrowed_at"`
	DueDate        time.Time             `json:"due_date"`
	ReturnedAt     *time.Time            `json:"returned_at,omitempty"`
	Status         enums.BorrowingStatus `json:"status"`
	ExtensionCount int                   `json:"extension_count"`
	MaxExtensions  int                   `json:"max_extensions"`
	AdminValidated bool                  `json:"admin_validated"`
	ValidatedBy    *uuid.UUID            `json:"validated_by,omitempty"`
	ValidatedAt    *time.Time            `json:"validated_at,omitempty"`
	FineAmount     decimal.Decimal       `json:"fine_amount"`
	FinePaid       bool                  `json:"fine_paid"`
	CanExtend      bool                  `json:"can_extend"`
	DaysLate       int64                 `json:"days_late"`
	CreatedAt      time.Time             `json:"created_at"`
}

// BorrowingListDTO is a cursor-paginated page of loans.
type BorrowingListDTO struct {
	Items      []BorrowingDTO `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	Total      int64          `json:"total"`
}

func toDTO(b *models.Borrowing, asOf time.Time) BorrowingDTO {
	daysLate := int64(0)
	if b.IsActive() {
		daysLate = DaysLate(b.DueDate, asOf)
	}
	return BorrowingDTO{
		ID:             b.ID,
		BookID:         b.BookID,
		UserID:         b.UserID,
		BorrowedAt:     b.BorrowedAt,
		DueDate:        b.DueDate,
		ReturnedAt:     b.ReturnedAt,
		Status:         b.Status,
		ExtensionCount: b.ExtensionCount,
		MaxExtensions:  b.MaxExtensions,
		AdminValidated: b.AdminValidated,
		ValidatedBy:    b.ValidatedBy,
		ValidatedAt:    b.ValidatedAt,
		FineAmount:     b.FineAmount,
		FinePaid:       b.FinePaid,
		CanExtend:      CanExtend(*b),
		DaysLate:       daysLate,
		CreatedAt:      b.CreatedAt,
	}
}
