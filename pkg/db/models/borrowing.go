package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// Borrowing represents one loan of one copy to one member.
//
// status is "returned" exactly when returned_at is set, and due_date never
// decreases across extensions.
type Borrowing struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookID         uuid.UUID             `gorm:"column:book_id;type:uuid;not null;index:borrowings_book_id_idx"`
	UserID         uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:borrowings_user_id_idx"`
	BorrowedAt     time.Time             `gorm:"column:borrowed_at;not null"`
	DueDate        time.Time             `gorm:"column:due_date;not null"`
	ReturnedAt     *time.Time            `gorm:"column:returned_at"`
	Status         enums.BorrowingStatus `gorm:"column:status;type:borrowing_status;not null;default:'active'"`
	ExtensionCount int                   `gorm:"column:extension_count;not null;default:0"`
	MaxExtensions  int                   `gorm:"column:max_extensions;not null;default:2"`
	AdminValidated bool                  `gorm:"column:admin_validated;not null;default:false"`
	ValidatedBy    *uuid.UUID            `gorm:"column:validated_by;type:uuid"`
	ValidatedAt    *time.Time            `gorm:"column:validated_at"`
	FineAmount     decimal.Decimal       `gorm:"column:fine_amount;type:numeric(10,2);not null;default:0"`
	FinePaid       bool                  `gorm:"column:fine_paid;not null;default:false"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// IsActive reports whether the copy is still out with the member.
func (b Borrowing) IsActive() bool {
	return b.Status == enums.BorrowingStatusActive
}

// IsOverdue reports whether an active borrowing is past its due date.
func (b Borrowing) IsOverdue(asOf time.Time) bool {
	return b.IsActive() && asOf.After(b.DueDate)
}
