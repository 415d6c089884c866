package books

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
)

// Ledger adjusts available_copies inside a caller-owned transaction. Every
// adjustment is a single conditional UPDATE whose WHERE clause encodes the
// inventory bounds, so two racing borrows of the last copy resolve in the
// database: one statement matches a row, the other matches none.
type Ledger interface {
	Adjust(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, delta int) error
}

type ledgerImpl struct{}

// NewLedger exposes the default inventory ledger implementation.
func NewLedger() Ledger {
	return ledgerImpl{}
}

func (ledgerImpl) Adjust(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory adjustment")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE books
		SET available_copies = available_copies + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
			AND available_copies + ? >= 0
			AND available_copies + ? <= total_copies
	`, delta, bookID, delta, delta)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInventory, "inventory adjustment rejected").
			WithDetails(map[string]any{"book_id": bookID, "delta": delta})
	}
	return nil
}
