package favorites

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// Repository encapsulates favorites persistence.
type Repository interface {
	Add(ctx context.Context, userID, bookID uuid.UUID) error
	Remove(ctx context.Context, userID, bookID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*FavoriteListDTO, error)
	IsFavorite(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Add inserts the like and ignores duplicates.
func (r *repository) Add(ctx context.Context, userID, bookID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO favorites (user_id, book_id) VALUES (?, ?) ON CONFLICT (user_id, book_id) DO NOTHING`, userID, bookID).
		Error
}

// Remove deletes the like if it exists.
func (r *repository) Remove(ctx context.Context, userID, bookID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.Favorite{}).
		Error
}

type favoriteBookRecord struct {
	FavoriteID        uuid.UUID  `gorm:"column:favorite_id"`
	FavoriteCreatedAt time.Time  `gorm:"column:favorite_created_at"`
	ID                uuid.UUID  `gorm:"column:book_id"`
	Title             string     `gorm:"column:title"`
	Author            string     `gorm:"column:author"`
	Description       *string    `gorm:"column:description"`
	ISBN              *string    `gorm:"column:isbn"`
	Category          *string    `gorm:"column:category"`
	PublicationYear   *int       `gorm:"column:publication_year"`
	CoverURL          *string    `gorm:"column:cover_url"`
	PDFURL            *string    `gorm:"column:pdf_url"`
	OwnerID           *uuid.UUID `gorm:"column:owner_id"`
	TotalCopies       int        `gorm:"column:total_copies"`
	AvailableCopies   int        `gorm:"column:available_copies"`
	CreatedAt         time.Time  `gorm:"column:book_created_at"`
	UpdatedAt         time.Time  `gorm:"column:book_updated_at"`
}

func (rec favoriteBookRecord) toDTO() FavoriteDTO {
	return FavoriteDTO{
		Book: books.BookDTO{
			ID:              rec.ID,
			Title:           rec.Title,
			Author:          rec.Author,
			Description:     rec.Description,
			ISBN:            rec.ISBN,
			Category:        rec.Category,
			PublicationYear: rec.PublicationYear,
			CoverURL:        rec.CoverURL,
			PDFURL:          rec.PDFURL,
			OwnerID:         rec.OwnerID,
			TotalCopies:     rec.TotalCopies,
			AvailableCopies: rec.AvailableCopies,
			CreatedAt:       rec.CreatedAt,
			UpdatedAt:       rec.UpdatedAt,
		},
		AddedAt: rec.FavoriteCreatedAt,
	}
}

// List returns the member's liked books newest first with their catalog
// summaries joined in.
func (r *repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*FavoriteListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	selectColumns := []string{
		"f.id AS favorite_id",
		"f.created_at AS favorite_created_at",
		"b.id AS book_id",
		"b.title",
		"b.author",
		"b.description",
		"b.isbn",
		"b.category",
		"b.publication_year",
		"b.cover_url",
		"b.pdf_url",
		"b.owner_id",
		"b.total_copies",
		"b.available_copies",
		"b.created_at AS book_created_at",
		"b.updated_at AS book_updated_at",
	}

	query := r.db.WithContext(ctx).
		Table("favorites f").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN books b ON b.id = f.book_id").
		Where("f.user_id = ?", userID)

	if decodedCursor != nil {
		query = query.Where("(f.created_at < ?) OR (f.created_at = ? AND f.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("f.created_at DESC").Order("f.id DESC").Limit(limitWithBuffer)

	var records []favoriteBookRecord
	if err := query.Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.FavoriteCreatedAt,
			ID:        last.FavoriteID,
		})
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]FavoriteDTO, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDTO())
	}

	return &FavoriteListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

func (r *repository) IsFavorite(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
