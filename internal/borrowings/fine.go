package borrowings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// DefaultFinePerDay is the charge per full day late.
var DefaultFinePerDay = decimal.RequireFromString("0.50")

// DaysLate returns the number of whole 24-hour days asOf is past due.
// Partial days do not count.
func DaysLate(due, asOf time.Time) int64 {
	late := asOf.Sub(due)
	if late <= 0 {
		return 0
	}
	return int64(late / (24 * time.Hour))
}

// Fine computes the late charge at the given per-day rate.
func Fine(due, asOf time.Time, perDay decimal.Decimal) decimal.Decimal {
	days := DaysLate(due, asOf)
	if days == 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(days))
}

// ComputeFine computes the late charge at the default rate.
func ComputeFine(due, asOf time.Time) decimal.Decimal {
	return Fine(due, asOf, DefaultFinePerDay)
}

// CanExtend reports whether a borrowing is eligible for another extension.
// The individual guards surface distinct error codes in Extend; this
// combined form serves listings that show an "extend" affordance.
func CanExtend(b models.Borrowing) bool {
	return b.Status == enums.BorrowingStatusActive &&
		b.AdminValidated &&
		b.ExtensionCount < b.MaxExtensions
}
