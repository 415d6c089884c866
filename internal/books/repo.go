package books

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// Repository defines catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*BookListDTO, error)
	SetCopyCounts(ctx context.Context, id uuid.UUID, newTotal int) (int64, error)
	CountActiveBorrowings(ctx context.Context, bookID uuid.UUID) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a books repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Book{}).Error
}

// List returns a cursor-paginated catalog page with optional category and
// free-text filters.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*BookListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	base := r.db.WithContext(ctx).Model(&models.Book{})
	if filters.Category != "" {
		base = base.Where("category = ?", filters.Category)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + search + "%"
		base = base.Where("title ILIKE ? OR author ILIKE ? OR coalesce(isbn, '') ILIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	query := base.Session(&gorm.Session{})
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Book
	if err := query.Find(&records).Error; err != nil {
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

	items := make([]BookDTO, 0, len(records))
	for i := range records {
		items = append(items, toDTO(&records[i]))
	}

	return &BookListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// SetCopyCounts changes total_copies and shifts available_copies by the same
// delta in one statement. The WHERE guard refuses a change that would push
// available_copies negative, which is exactly the case where the new total
// drops below the number of copies currently out. Returns rows affected.
func (r *repository) SetCopyCounts(ctx context.Context, id uuid.UUID, newTotal int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE books
		SET available_copies = available_copies + (? - total_copies),
			total_copies = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_copies + (? - total_copies) >= 0
	`, newTotal, newTotal, id, newTotal)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) CountActiveBorrowings(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrowing{}).
		Where("book_id = ? AND status = 'active'", bookID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
