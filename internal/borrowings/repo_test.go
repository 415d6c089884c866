package borrowings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

func setupBorrowingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS borrowings (
  id TEXT PRIMARY KEY,
  book_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  borrowed_at DATETIME NOT NULL,
  due_date DATETIME NOT NULL,
  returned_at DATETIME,
  status TEXT NOT NULL DEFAULT 'active',
  extension_count INTEGER NOT NULL DEFAULT 0,
  max_extensions INTEGER NOT NULL DEFAULT 2,
  admin_validated INTEGER NOT NULL DEFAULT 0,
  validated_by TEXT,
  validated_at DATETIME,
  fine_amount TEXT NOT NULL DEFAULT '0',
  fine_paid INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM borrowings`).Error)
	return db
}

func seedBorrowing(t *testing.T, db *gorm.DB, mutate func(*models.Borrowing)) *models.Borrowing {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	borrowing := &models.Borrowing{
		ID:             uuid.New(),
		BookID:         uuid.New(),
		UserID:         uuid.New(),
		BorrowedAt:     now,
		DueDate:        now.Add(14 * 24 * time.Hour),
		Status:         enums.BorrowingStatusActive,
		ExtensionCount: 0,
		MaxExtensions:  2,
		FineAmount:     decimal.Zero,
		CreatedAt:      now,
	}
	if mutate != nil {
		mutate(borrowing)
	}
	require.NoError(t, db.Create(borrowing).Error)
	return borrowing
}

func TestRepositoryMarkReturnedGuardsDoubleReturn(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	borrowing := seedBorrowing(t, db, nil)
	returnedAt := time.Now().UTC().Truncate(time.Second)
	fine := decimal.NewFromFloat(1.50)

	// A fine priced against a due date the row no longer has must not land.
	affected, err := repo.MarkReturned(ctx, borrowing.ID, returnedAt, fine, borrowing.DueDate.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	affected, err = repo.MarkReturned(ctx, borrowing.ID, returnedAt, fine, borrowing.DueDate)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	stored, err := repo.FindByID(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BorrowingStatusReturned, stored.Status)
	require.NotNil(t, stored.ReturnedAt)
	assert.True(t, stored.FineAmount.Equal(fine))

	// The status guard makes the second return a no-op.
	affected, err = repo.MarkReturned(ctx, borrowing.ID, returnedAt, fine, borrowing.DueDate)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestRepositoryApplyExtensionGuards(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	borrowing := seedBorrowing(t, db, func(b *models.Borrowing) {
		b.AdminValidated = true
	})
	newDue := borrowing.DueDate.Add(7 * 24 * time.Hour)

	affected, err := repo.ApplyExtension(ctx, borrowing.ID, newDue, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	stored, err := repo.FindByID(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ExtensionCount)
	assert.True(t, stored.DueDate.Equal(newDue))

	// A second statement keyed on the stale count must lose.
	affected, err = repo.ApplyExtension(ctx, borrowing.ID, newDue.Add(7*24*time.Hour), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	// Second extension with the right count lands, the third hits the cap.
	affected, err = repo.ApplyExtension(ctx, borrowing.ID, newDue.Add(7*24*time.Hour), 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	affected, err = repo.ApplyExtension(ctx, borrowing.ID, newDue.Add(14*24*time.Hour), 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestRepositoryApplyExtensionRequiresValidation(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	borrowing := seedBorrowing(t, db, nil)

	affected, err := repo.ApplyExtension(ctx, borrowing.ID, borrowing.DueDate.Add(7*24*time.Hour), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestRepositoryMarkValidatedIsOneShot(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	borrowing := seedBorrowing(t, db, nil)
	admin := uuid.New()
	at := time.Now().UTC().Truncate(time.Second)

	affected, err := repo.MarkValidated(ctx, borrowing.ID, admin, at)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	stored, err := repo.FindByID(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.True(t, stored.AdminValidated)
	require.NotNil(t, stored.ValidatedBy)
	assert.Equal(t, admin, *stored.ValidatedBy)

	affected, err = repo.MarkValidated(ctx, borrowing.ID, admin, at)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestRepositoryMarkValidatedSkipsReturned(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	returnedAt := time.Now().UTC().Truncate(time.Second)
	borrowing := seedBorrowing(t, db, func(b *models.Borrowing) {
		b.Status = enums.BorrowingStatusReturned
		b.ReturnedAt = &returnedAt
	})

	affected, err := repo.MarkValidated(ctx, borrowing.ID, uuid.New(), returnedAt)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	stored, err := repo.FindByID(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.False(t, stored.AdminValidated)
	assert.Nil(t, stored.ValidatedBy)
}

func TestRepositoryListForUserPaginates(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * time.Minute
		seedBorrowing(t, db, func(b *models.Borrowing) {
			b.UserID = userID
			b.CreatedAt = base.Add(offset)
		})
	}
	// Noise from another member must not appear.
	seedBorrowing(t, db, nil)

	page, err := repo.ListForUser(ctx, userID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListForUser(ctx, userID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)
	assert.Empty(t, rest.NextCursor)

	seen := make(map[uuid.UUID]bool)
	for _, item := range append(page.Items, rest.Items...) {
		require.False(t, seen[item.ID], "duplicate borrowing across pages")
		seen[item.ID] = true
	}
}

func TestRepositoryCountsSplitActiveAndOverdue(t *testing.T) {
	db := setupBorrowingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	seedBorrowing(t, db, nil)
	seedBorrowing(t, db, func(b *models.Borrowing) {
		b.DueDate = now.Add(-48 * time.Hour)
	})
	seedBorrowing(t, db, func(b *models.Borrowing) {
		b.Status = enums.BorrowingStatusReturned
		returned := now
		b.ReturnedAt = &returned
	})

	active, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, active)

	overdue, err := repo.CountOverdue(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, overdue)
}
