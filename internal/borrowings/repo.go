package borrowings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// Repository defines borrowing persistence. State transitions are
// conditional UPDATEs that return rows affected; zero rows means the guard
// in the WHERE clause did not hold anymore.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, borrowing *models.Borrowing) (*models.Borrowing, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Borrowing, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine decimal.Decimal, dueDate time.Time) (int64, error)
	MarkValidated(ctx context.Context, id uuid.UUID, validatedBy uuid.UUID, validatedAt time.Time) (int64, error)
	ApplyExtension(ctx context.Context, id uuid.UUID, newDue time.Time, prevCount int) (int64, error)
	MarkFinePaid(ctx context.Context, id uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BorrowingListDTO, error)
	ListActive(ctx context.Context, params pagination.Params) (*BorrowingListDTO, error)
	ListOverdue(ctx context.Context, asOf time.Time, params pagination.Params) (*BorrowingListDTO, error)
	CountActive(ctx context.Context) (int64, error)
	CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a borrowings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, borrowing *models.Borrowing) (*models.Borrowing, error) {
	if err := r.db.WithContext(ctx).Create(borrowing).Error; err != nil {
		return nil, err
	}
	return borrowing, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Borrowing{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Borrowing, error) {
	var borrowing models.Borrowing
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&borrowing).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// MarkReturned flips an active loan to returned. The status guard makes a
// double return lose cleanly, and the due_date guard rejects a fine priced
// against a due date that an extension has since moved.
func (r *repository) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine decimal.Decimal, dueDate time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE borrowings
		SET status = 'returned',
			returned_at = ?,
			fine_amount = ?
		WHERE id = ? AND status = 'active' AND due_date = ?
	`, returnedAt, fine, id, dueDate)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkValidated stamps staff sign-off on an active loan only. A returned
// loan matches no row, same as an already validated one.
func (r *repository) MarkValidated(ctx context.Context, id uuid.UUID, validatedBy uuid.UUID, validatedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE borrowings
		SET admin_validated = TRUE,
			validated_by = ?,
			validated_at = ?
		WHERE id = ? AND admin_validated = FALSE AND status = 'active'
	`, validatedBy, validatedAt, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ApplyExtension bumps due_date and extension_count keyed on the previous
// count, so two concurrent extends cannot both land.
func (r *repository) ApplyExtension(ctx context.Context, id uuid.UUID, newDue time.Time, prevCount int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE borrowings
		SET due_date = ?,
			extension_count = extension_count + 1
		WHERE id = ?
			AND status = 'active'
			AND admin_validated = TRUE
			AND extension_count = ?
			AND extension_count < max_extensions
	`, newDue, id, prevCount)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) MarkFinePaid(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE borrowings
		SET fine_paid = TRUE
		WHERE id = ? AND fine_paid = FALSE
	`, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BorrowingListDTO, error) {
	return r.list(ctx, params, "user_id = ?", userID)
}

func (r *repository) ListActive(ctx context.Context, params pagination.Params) (*BorrowingListDTO, error) {
	return r.list(ctx, params, "status = 'active'")
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time, params pagination.Params) (*BorrowingListDTO, error) {
	return r.list(ctx, params, "status = 'active' AND due_date < ?", asOf)
}

func (r *repository) list(ctx context.Context, params pagination.Params, condition string, args ...any) (*BorrowingListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	base := r.db.WithContext(ctx).Model(&models.Borrowing{}).Where(condition, args...)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	query := base.Session(&gorm.Session{})
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Borrowing
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

	now := time.Now().UTC()
	items := make([]BorrowingDTO, 0, len(records))
	for i := range records {
		items = append(items, toDTO(&records[i], now))
	}

	return &BorrowingListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

func (r *repository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, "status = 'active'")
}

func (r *repository) CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.count(ctx, "status = 'active' AND user_id = ?", userID)
}

func (r *repository) CountOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	return r.count(ctx, "status = 'active' AND due_date < ?", asOf)
}

func (r *repository) count(ctx context.Context, condition string, args ...any) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrowing{}).
		Where(condition, args...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
