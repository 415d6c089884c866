package reading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
)

const recentSessionsLimit = 10

// Repository encapsulates reading session persistence.
type Repository interface {
	Create(ctx context.Context, session *models.ReadingSession) (*models.ReadingSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error)
	End(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int, pagesRead *int) (int64, error)
	Totals(ctx context.Context, userID uuid.UUID) (sessions, minutes, pages int64, err error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReadingSession, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a reading repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, session *models.ReadingSession) (*models.ReadingSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error) {
	var session models.ReadingSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// End closes an open session; the ended_at guard makes a double end match
// no row.
func (r *repository) End(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int, pagesRead *int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE reading_sessions
		SET ended_at = ?,
			duration_minutes = ?,
			pages_read = COALESCE(?, pages_read),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND ended_at IS NULL
	`, endedAt, durationMinutes, pagesRead, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) Totals(ctx context.Context, userID uuid.UUID) (int64, int64, int64, error) {
	var row struct {
		Sessions int64 `gorm:"column:sessions"`
		Minutes  int64 `gorm:"column:minutes"`
		Pages    int64 `gorm:"column:pages"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.ReadingSession{}).
		Select("COUNT(*) AS sessions, COALESCE(SUM(duration_minutes), 0) AS minutes, COALESCE(SUM(pages_read), 0) AS pages").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, 0, err
	}
	return row.Sessions, row.Minutes, row.Pages, nil
}

func (r *repository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReadingSession, error) {
	if limit <= 0 {
		limit = recentSessionsLimit
	}
	var sessions []models.ReadingSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
