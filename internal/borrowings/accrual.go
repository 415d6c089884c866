package borrowings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccrualRepository keeps fine_amount current on overdue active loans so
// members see their balance without returning first.
type AccrualRepository interface {
	AccrueFines(ctx context.Context, asOf time.Time, perDay decimal.Decimal) (int64, error)
}

type accrualRepository struct {
	db *gorm.DB
}

// NewAccrualRepository builds the fine accrual query on the provided DB.
func NewAccrualRepository(db *gorm.DB) AccrualRepository {
	return &accrualRepository{db: db}
}

// AccrueFines recomputes fine_amount for every overdue active loan as
// floor(days late) * perDay. Returned loans keep the fine frozen at return
// time and are never touched here.
func (r *accrualRepository) AccrueFines(ctx context.Context, asOf time.Time, perDay decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE borrowings
		SET fine_amount = FLOOR(EXTRACT(EPOCH FROM (?::timestamptz - due_date)) / 86400) * ?::numeric
		WHERE status = 'active'
			AND due_date < ?
			AND fine_paid = FALSE
	`, asOf, perDay, asOf)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
