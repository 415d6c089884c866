package messaging

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CleanupRepository closes support threads nobody has touched in a while.
type CleanupRepository interface {
	CloseIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type cleanupRepository struct {
	db *gorm.DB
}

// NewCleanupRepository builds the idle-thread query on the provided DB.
func NewCleanupRepository(db *gorm.DB) CleanupRepository {
	return &cleanupRepository{db: db}
}

func (r *cleanupRepository) CloseIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE conversations
		SET status = 'closed',
			updated_at = CURRENT_TIMESTAMP
		WHERE status = 'open' AND updated_at < ?
	`, cutoff)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
