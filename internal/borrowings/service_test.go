package borrowings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

type stubBorrowingsRepo struct {
	borrowings map[uuid.UUID]*models.Borrowing
	createErr  error
	deleteErr  error
	deleted    []uuid.UUID

	returnedRows   int64
	extensionRows  *int64
	onMarkReturned func()
}

func newStubBorrowingsRepo() *stubBorrowingsRepo {
	return &stubBorrowingsRepo{
		borrowings:   make(map[uuid.UUID]*models.Borrowing),
		returnedRows: 1,
	}
}

func (s *stubBorrowingsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubBorrowingsRepo) Create(ctx context.Context, borrowing *models.Borrowing) (*models.Borrowing, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if borrowing.ID == uuid.Nil {
		borrowing.ID = uuid.New()
	}
	borrowing.CreatedAt = time.Now()
	s.borrowings[borrowing.ID] = borrowing
	return borrowing, nil
}

func (s *stubBorrowingsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	delete(s.borrowings, id)
	return nil
}

func (s *stubBorrowingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Borrowing, error) {
	borrowing, ok := s.borrowings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *borrowing
	return &copied, nil
}

func (s *stubBorrowingsRepo) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine decimal.Decimal, dueDate time.Time) (int64, error) {
	if s.onMarkReturned != nil {
		s.onMarkReturned()
	}
	if s.returnedRows == 0 {
		return 0, nil
	}
	borrowing, ok := s.borrowings[id]
	if !ok || borrowing.Status != enums.BorrowingStatusActive || !borrowing.DueDate.Equal(dueDate) {
		return 0, nil
	}
	borrowing.Status = enums.BorrowingStatusReturned
	borrowing.ReturnedAt = &returnedAt
	borrowing.FineAmount = fine
	return 1, nil
}

func (s *stubBorrowingsRepo) MarkValidated(ctx context.Context, id uuid.UUID, validatedBy uuid.UUID, validatedAt time.Time) (int64, error) {
	borrowing, ok := s.borrowings[id]
	if !ok || borrowing.AdminValidated || borrowing.Status != enums.BorrowingStatusActive {
		return 0, nil
	}
	borrowing.AdminValidated = true
	borrowing.ValidatedBy = &validatedBy
	borrowing.ValidatedAt = &validatedAt
	return 1, nil
}

func (s *stubBorrowingsRepo) ApplyExtension(ctx context.Context, id uuid.UUID, newDue time.Time, prevCount int) (int64, error) {
	if s.extensionRows != nil {
		return *s.extensionRows, nil
	}
	borrowing, ok := s.borrowings[id]
	if !ok || borrowing.Status != enums.BorrowingStatusActive || !borrowing.AdminValidated {
		return 0, nil
	}
	if borrowing.ExtensionCount != prevCount || borrowing.ExtensionCount >= borrowing.MaxExtensions {
		return 0, nil
	}
	borrowing.DueDate = newDue
	borrowing.ExtensionCount++
	return 1, nil
}

func (s *stubBorrowingsRepo) MarkFinePaid(ctx context.Context, id uuid.UUID) (int64, error) {
	borrowing, ok := s.borrowings[id]
	if !ok || borrowing.FinePaid {
		return 0, nil
	}
	borrowing.FinePaid = true
	return 1, nil
}

func (s *stubBorrowingsRepo) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BorrowingListDTO, error) {
	return &BorrowingListDTO{}, nil
}

func (s *stubBorrowingsRepo) ListActive(ctx context.Context, params pagination.Params) (*BorrowingListDTO, error) {
	return &BorrowingListDTO{}, nil
}

func (s *stubBorrowingsRepo) ListOverdue(ctx context.Context, asOf time.Time, params pagination.Params) (*BorrowingListDTO, error) {
	return &BorrowingListDTO{}, nil
}

func (s *stubBorrowingsRepo) CountActive(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubBorrowingsRepo) CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubBorrowingsRepo) CountOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	return 0, nil
}

type stubLedger struct {
	failNext bool
	calls    []int
}

func (s *stubLedger) Adjust(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, delta int) error {
	s.calls = append(s.calls, delta)
	if s.failNext {
		s.failNext = false
		return pkgerrors.New(pkgerrors.CodeInventory, "inventory adjustment rejected")
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	repo   *stubBorrowingsRepo
	books  *stubBooksRepoForBorrowings
	ledger *stubLedger
	now    time.Time
	svc    Service
}

type stubBooksRepoForBorrowings struct {
	books map[uuid.UUID]*models.Book
}

func (s *stubBooksRepoForBorrowings) WithTx(tx *gorm.DB) books.Repository { return s }

func (s *stubBooksRepoForBorrowings) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	s.books[book.ID] = book
	return book, nil
}

func (s *stubBooksRepoForBorrowings) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return book, nil
}

func (s *stubBooksRepoForBorrowings) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubBooksRepoForBorrowings) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubBooksRepoForBorrowings) List(ctx context.Context, params pagination.Params, filters books.ListFilters) (*books.BookListDTO, error) {
	return &books.BookListDTO{}, nil
}

func (s *stubBooksRepoForBorrowings) SetCopyCounts(ctx context.Context, id uuid.UUID, newTotal int) (int64, error) {
	return 1, nil
}

func (s *stubBooksRepoForBorrowings) CountActiveBorrowings(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubBooksRepoForBorrowings) Count(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubBooksRepoForBorrowings) CountOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return 0, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubBorrowingsRepo()
	booksRepo := &stubBooksRepoForBorrowings{books: make(map[uuid.UUID]*models.Book)}
	ledger := &stubLedger{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		BooksRepo: booksRepo,
		Ledger:    ledger,
		Tx:        stubTxRunner{},
		Lending: config.LendingConfig{
			LoanPeriodDays: 14,
			ExtensionDays:  7,
			MaxExtensions:  2,
			FinePerDay:     "0.50",
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{repo: repo, books: booksRepo, ledger: ledger, now: now, svc: svc}
}

func (f *fixture) addBook(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.books.books[id] = &models.Book{ID: id, Title: "Dune", Author: "Herbert", TotalCopies: 3, AvailableCopies: 3}
	return id
}

func (f *fixture) addBorrowing(b models.Borrowing) uuid.UUID {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = enums.BorrowingStatusActive
	}
	if b.MaxExtensions == 0 {
		b.MaxExtensions = 2
	}
	f.repo.borrowings[b.ID] = &b
	return b.ID
}

func member() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
}

func admin() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Role: enums.AppRoleAdmin}
}

func TestCreateSetsLoanPeriod(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t)
	ident := member()

	dto, err := f.svc.Create(context.Background(), ident, bookID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantDue := f.now.Add(14 * 24 * time.Hour)
	if !dto.DueDate.Equal(wantDue) {
		t.Fatalf("expected due %s, got %s", wantDue, dto.DueDate)
	}
	if dto.Status != enums.BorrowingStatusActive {
		t.Fatalf("expected active, got %s", dto.Status)
	}
	if dto.AdminValidated {
		t.Fatal("new borrowing must not be validated")
	}
	if len(f.ledger.calls) != 1 || f.ledger.calls[0] != -1 {
		t.Fatalf("expected one decrement, got %v", f.ledger.calls)
	}
}

func TestCreateLastCopyRaceReturnsUnavailable(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t)
	f.ledger.failNext = true

	_, err := f.svc.Create(context.Background(), member(), bookID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeBookUnavailable) {
		t.Fatalf("expected BOOK_UNAVAILABLE, got %v", err)
	}
	if len(f.repo.deleted) != 1 {
		t.Fatalf("expected compensating delete, got %v", f.repo.deleted)
	}
	if len(f.repo.borrowings) != 0 {
		t.Fatal("borrowing should be removed")
	}
}

func TestCreateCompensationFailureFlagsRow(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t)
	f.ledger.failNext = true
	f.repo.deleteErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), member(), bookID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInventory) {
		t.Fatalf("expected INVENTORY_CONSTRAINT, got %v", err)
	}
	if len(f.repo.borrowings) != 1 {
		t.Fatal("orphaned borrowing should remain for reconciliation")
	}
}

func TestCreateDuplicateActiveLoanConflicts(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t)
	f.repo.createErr = errors.New(`duplicate key value violates unique constraint "borrowings_active_user_book_key"`)

	_, err := f.svc.Create(context.Background(), member(), bookID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if len(f.ledger.calls) != 0 {
		t.Fatalf("no inventory adjustment expected, got %v", f.ledger.calls)
	}
}

func TestCreateUnknownBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), member(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReturnComputesFine(t *testing.T) {
	f := newFixture(t)
	ident := member()
	bookID := f.addBook(t)
	id := f.addBorrowing(models.Borrowing{
		BookID:  bookID,
		UserID:  ident.UserID,
		DueDate: f.now.Add(-(5*24*time.Hour + time.Hour)),
	})

	dto, err := f.svc.Return(context.Background(), ident, id)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if dto.Status != enums.BorrowingStatusReturned {
		t.Fatalf("expected returned, got %s", dto.Status)
	}
	if dto.FineAmount.String() != "2.5" {
		t.Fatalf("expected fine 2.5, got %s", dto.FineAmount)
	}
	if len(f.ledger.calls) != 1 || f.ledger.calls[0] != 1 {
		t.Fatalf("expected one increment, got %v", f.ledger.calls)
	}
}

func TestReturnOnTimeHasNoFine(t *testing.T) {
	f := newFixture(t)
	ident := member()
	id := f.addBorrowing(models.Borrowing{
		BookID:  f.addBook(t),
		UserID:  ident.UserID,
		DueDate: f.now.Add(24 * time.Hour),
	})

	dto, err := f.svc.Return(context.Background(), ident, id)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if !dto.FineAmount.IsZero() {
		t.Fatalf("expected zero fine, got %s", dto.FineAmount)
	}
}

func TestReturnRepricesWhenExtensionRaces(t *testing.T) {
	f := newFixture(t)
	ident := member()
	id := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        f.now.Add(-48 * time.Hour),
		AdminValidated: true,
	})

	// An extension lands between the fine computation and the transition;
	// the due-date guard forces a re-read and the fine is priced against
	// the extended date.
	fired := false
	f.repo.onMarkReturned = func() {
		if fired {
			return
		}
		fired = true
		stored := f.repo.borrowings[id]
		stored.DueDate = stored.DueDate.Add(7 * 24 * time.Hour)
		stored.ExtensionCount++
	}

	dto, err := f.svc.Return(context.Background(), ident, id)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if dto.Status != enums.BorrowingStatusReturned {
		t.Fatalf("expected returned, got %s", dto.Status)
	}
	if !dto.FineAmount.IsZero() {
		t.Fatalf("fine must be priced against the extended due date, got %s", dto.FineAmount)
	}
	if len(f.ledger.calls) != 1 || f.ledger.calls[0] != 1 {
		t.Fatalf("expected exactly one increment, got %v", f.ledger.calls)
	}
}

func TestReturnAlreadyReturned(t *testing.T) {
	f := newFixture(t)
	ident := member()
	returnedAt := f.now.Add(-time.Hour)
	id := f.addBorrowing(models.Borrowing{
		BookID:     f.addBook(t),
		UserID:     ident.UserID,
		DueDate:    f.now,
		Status:     enums.BorrowingStatusReturned,
		ReturnedAt: &returnedAt,
	})

	_, err := f.svc.Return(context.Background(), ident, id)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyReturned) {
		t.Fatalf("expected ALREADY_RETURNED, got %v", err)
	}
	if len(f.ledger.calls) != 0 {
		t.Fatalf("inventory must not change, got %v", f.ledger.calls)
	}
}

func TestReturnPermissions(t *testing.T) {
	f := newFixture(t)
	borrower := member()
	id := f.addBorrowing(models.Borrowing{
		BookID:  f.addBook(t),
		UserID:  borrower.UserID,
		DueDate: f.now,
	})

	_, err := f.svc.Return(context.Background(), member(), id)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for stranger, got %v", err)
	}

	if _, err := f.svc.Return(context.Background(), admin(), id); err != nil {
		t.Fatalf("admin return: %v", err)
	}
}

func TestValidateIdempotent(t *testing.T) {
	f := newFixture(t)
	staff := admin()
	id := f.addBorrowing(models.Borrowing{
		BookID:  f.addBook(t),
		UserID:  uuid.New(),
		DueDate: f.now,
	})

	first, err := f.svc.Validate(context.Background(), staff, id)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !first.AdminValidated || first.ValidatedBy == nil || *first.ValidatedBy != staff.UserID {
		t.Fatalf("expected validation recorded, got %+v", first)
	}

	second, err := f.svc.Validate(context.Background(), admin(), id)
	if err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if *second.ValidatedBy != staff.UserID {
		t.Fatal("second validation must not overwrite the first")
	}

	if _, err := f.svc.Validate(context.Background(), member(), id); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for member, got %v", err)
	}
}

func TestValidateReturnedBorrowingRejected(t *testing.T) {
	f := newFixture(t)
	returnedAt := f.now
	id := f.addBorrowing(models.Borrowing{
		BookID:     f.addBook(t),
		UserID:     uuid.New(),
		DueDate:    f.now,
		Status:     enums.BorrowingStatusReturned,
		ReturnedAt: &returnedAt,
	})

	_, err := f.svc.Validate(context.Background(), admin(), id)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyReturned) {
		t.Fatalf("expected ALREADY_RETURNED, got %v", err)
	}

	stored := f.repo.borrowings[id]
	if stored.AdminValidated || stored.ValidatedBy != nil || stored.ValidatedAt != nil {
		t.Fatalf("closed record must stay unstamped, got %+v", stored)
	}
}

func TestExtendGuardOrder(t *testing.T) {
	f := newFixture(t)
	ident := member()
	ctx := context.Background()

	// Returned wins over everything, validated or not.
	returnedAt := f.now
	returned := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        f.now,
		Status:         enums.BorrowingStatusReturned,
		ReturnedAt:     &returnedAt,
		ExtensionCount: 2,
	})
	if _, err := f.svc.Extend(ctx, ident, returned); !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyReturned) {
		t.Fatalf("expected ALREADY_RETURNED first, got %v", err)
	}

	// Unvalidated wins over the exhausted limit.
	unvalidated := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        f.now,
		ExtensionCount: 2,
	})
	if _, err := f.svc.Extend(ctx, ident, unvalidated); !pkgerrors.HasCode(err, pkgerrors.CodeNotValidated) {
		t.Fatalf("expected NOT_VALIDATED before limit, got %v", err)
	}

	exhausted := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        f.now,
		AdminValidated: true,
		ExtensionCount: 2,
	})
	if _, err := f.svc.Extend(ctx, ident, exhausted); !pkgerrors.HasCode(err, pkgerrors.CodeExtensionLimit) {
		t.Fatalf("expected EXTENSION_LIMIT_REACHED, got %v", err)
	}
}

func TestExtendDueDateArithmetic(t *testing.T) {
	f := newFixture(t)
	ident := member()
	originalDue := f.now.Add(14 * 24 * time.Hour)
	id := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        originalDue,
		AdminValidated: true,
	})
	ctx := context.Background()

	first, err := f.svc.Extend(ctx, ident, id)
	if err != nil {
		t.Fatalf("first Extend: %v", err)
	}
	if want := originalDue.Add(7 * 24 * time.Hour); !first.DueDate.Equal(want) {
		t.Fatalf("expected due %s, got %s", want, first.DueDate)
	}

	second, err := f.svc.Extend(ctx, ident, id)
	if err != nil {
		t.Fatalf("second Extend: %v", err)
	}
	if want := originalDue.Add(14 * 24 * time.Hour); !second.DueDate.Equal(want) {
		t.Fatalf("expected due %s, got %s", want, second.DueDate)
	}
	if second.ExtensionCount != 2 {
		t.Fatalf("expected 2 extensions, got %d", second.ExtensionCount)
	}

	if _, err := f.svc.Extend(ctx, ident, id); !pkgerrors.HasCode(err, pkgerrors.CodeExtensionLimit) {
		t.Fatalf("expected EXTENSION_LIMIT_REACHED, got %v", err)
	}
}

func TestExtendLosesConcurrentRace(t *testing.T) {
	f := newFixture(t)
	ident := member()
	id := f.addBorrowing(models.Borrowing{
		BookID:         f.addBook(t),
		UserID:         ident.UserID,
		DueDate:        f.now,
		AdminValidated: true,
	})

	zero := int64(0)
	f.repo.extensionRows = &zero
	_, err := f.svc.Extend(context.Background(), ident, id)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT on lost race, got %v", err)
	}
}

func TestMarkFinePaid(t *testing.T) {
	f := newFixture(t)
	id := f.addBorrowing(models.Borrowing{
		BookID:     f.addBook(t),
		UserID:     uuid.New(),
		DueDate:    f.now,
		FineAmount: decimal.RequireFromString("2.50"),
	})
	ctx := context.Background()

	if _, err := f.svc.MarkFinePaid(ctx, member(), id); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for member, got %v", err)
	}

	dto, err := f.svc.MarkFinePaid(ctx, admin(), id)
	if err != nil {
		t.Fatalf("MarkFinePaid: %v", err)
	}
	if !dto.FinePaid {
		t.Fatal("expected fine flagged paid")
	}

	// Second call is a no-op.
	if _, err := f.svc.MarkFinePaid(ctx, admin(), id); err != nil {
		t.Fatalf("idempotent MarkFinePaid: %v", err)
	}
}
