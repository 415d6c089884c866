package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// Repository encapsulates review persistence.
type Repository interface {
	Upsert(ctx context.Context, review *models.BookReview) (*models.BookReview, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BookReview, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForBook(ctx context.Context, bookID uuid.UUID, params pagination.Params) (*ReviewListDTO, error)
	Summary(ctx context.Context, bookID uuid.UUID) (*SummaryDTO, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert inserts the review or replaces the member's previous one for the
// same book, keyed on the unique (book_id, user_id) pair.
func (r *repository) Upsert(ctx context.Context, review *models.BookReview) (*models.BookReview, error) {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO book_reviews (book_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (book_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			updated_at = CURRENT_TIMESTAMP
	`, review.BookID, review.UserID, review.Rating, review.Comment).Error
	if err != nil {
		return nil, err
	}

	var saved models.BookReview
	err = r.db.WithContext(ctx).
		Where("book_id = ? AND user_id = ?", review.BookID, review.UserID).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BookReview, error) {
	var review models.BookReview
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.BookReview{}).Error
}

type reviewRecord struct {
	ID        uuid.UUID `gorm:"column:id"`
	BookID    uuid.UUID `gorm:"column:book_id"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	Reviewer  string    `gorm:"column:reviewer"`
	Rating    int       `gorm:"column:rating"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ListForBook returns a book's reviews newest first with the reviewer's
// display name joined in.
func (r *repository) ListForBook(ctx context.Context, bookID uuid.UUID, params pagination.Params) (*ReviewListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("book_reviews br").
		Select("br.id, br.book_id, br.user_id, COALESCE(p.full_name, '') AS reviewer, br.rating, br.comment, br.created_at, br.updated_at").
		Joins("LEFT JOIN profiles p ON p.id = br.user_id").
		Where("br.book_id = ?", bookID)

	if decodedCursor != nil {
		query = query.Where("(br.created_at < ?) OR (br.created_at = ? AND br.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("br.created_at DESC").Order("br.id DESC").Limit(limitWithBuffer)

	var records []reviewRecord
	if err := query.Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.BookReview{}).
		Where("book_id = ?", bookID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]ReviewDTO, 0, len(records))
	for _, record := range records {
		items = append(items, ReviewDTO{
			ID:        record.ID,
			BookID:    record.BookID,
			UserID:    record.UserID,
			Reviewer:  record.Reviewer,
			Rating:    record.Rating,
			Comment:   record.Comment,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})
	}

	return &ReviewListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// Summary aggregates ratings in SQL so large books never page reviews
// through the app.
func (r *repository) Summary(ctx context.Context, bookID uuid.UUID) (*SummaryDTO, error) {
	var row struct {
		AverageRating float64 `gorm:"column:average_rating"`
		ReviewCount   int64   `gorm:"column:review_count"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.BookReview{}).
		Select("COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS review_count").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &SummaryDTO{
		BookID:        bookID,
		AverageRating: row.AverageRating,
		ReviewCount:   row.ReviewCount,
	}, nil
}
