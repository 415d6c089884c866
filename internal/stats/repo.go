package stats

import (
	"context"

	"gorm.io/gorm"
)

const topBorrowedLimit = 5

// Repository holds the aggregate queries the dashboard needs that no other
// package owns.
type Repository interface {
	TopBorrowed(ctx context.Context, limit int) ([]TopBookDTO, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a stats repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// TopBorrowed ranks books by all-time borrow count.
func (r *repository) TopBorrowed(ctx context.Context, limit int) ([]TopBookDTO, error) {
	if limit <= 0 {
		limit = topBorrowedLimit
	}
	var rows []TopBookDTO
	err := r.db.WithContext(ctx).
		Table("borrowings bo").
		Select("bo.book_id, b.title, b.author, COUNT(*) AS borrow_count").
		Joins("JOIN books b ON b.id = bo.book_id").
		Group("bo.book_id, b.title, b.author").
		Order("borrow_count DESC").
		Order("bo.book_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
