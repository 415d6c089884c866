package books

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CopyMismatch is a book whose available_copies drifted from what the
// active loans imply.
type CopyMismatch struct {
	BookID        uuid.UUID `gorm:"column:book_id"`
	TotalCopies   int       `gorm:"column:total_copies"`
	Available     int       `gorm:"column:available_copies"`
	WantAvailable int       `gorm:"column:want_available"`
}

// ReconcileRepository finds and repairs inventory drift left behind when a
// borrow insert committed but its copy decrement did not.
type ReconcileRepository interface {
	FindMismatched(ctx context.Context) ([]CopyMismatch, error)
	Repair(ctx context.Context, bookID uuid.UUID, observed, want int) (int64, error)
}

type reconcileRepository struct {
	db *gorm.DB
}

// NewReconcileRepository builds the inventory reconcile queries on the
// provided DB.
func NewReconcileRepository(db *gorm.DB) ReconcileRepository {
	return &reconcileRepository{db: db}
}

func (r *reconcileRepository) FindMismatched(ctx context.Context) ([]CopyMismatch, error) {
	var rows []CopyMismatch
	err := r.db.WithContext(ctx).Raw(`
		SELECT b.id AS book_id,
			b.total_copies,
			b.available_copies,
			b.total_copies - COALESCE(bo.active_count, 0) AS want_available
		FROM books b
		LEFT JOIN (
			SELECT book_id, COUNT(*) AS active_count
			FROM borrowings
			WHERE status = 'active'
			GROUP BY book_id
		) bo ON bo.book_id = b.id
		WHERE b.available_copies <> b.total_copies - COALESCE(bo.active_count, 0)
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Repair rewrites available_copies only if the row still holds the drifted
// value observed by FindMismatched, so a borrow landing in between is not
// clobbered.
func (r *reconcileRepository) Repair(ctx context.Context, bookID uuid.UUID, observed, want int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE books
		SET available_copies = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_copies = ?
	`, want, bookID, observed)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
