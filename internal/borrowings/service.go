package borrowings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// returnRetries bounds the re-read loop when a return races an extension.
const returnRetries = 3

var errStaleReturn = errors.New("return lost the row guard")

// Service is the borrowing record manager: it owns every loan state
// transition and keeps the book inventory in step with them.
type Service interface {
	Create(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (BorrowingDTO, error)
	Return(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error)
	Validate(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error)
	Extend(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error)
	MarkFinePaid(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error)
	ListForUser(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error)
	ListActive(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error)
	ListOverdue(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error)
}

// ServiceParams groups dependencies for the borrowings service.
type ServiceParams struct {
	Repo      Repository
	BooksRepo books.Repository
	Ledger    books.Ledger
	Tx        txRunner
	Lending   config.LendingConfig
	Now       func() time.Time
}

type service struct {
	repo            Repository
	booksRepo       books.Repository
	ledger          books.Ledger
	tx              txRunner
	loanPeriod      time.Duration
	extensionPeriod time.Duration
	maxExtensions   int
	finePerDay      decimal.Decimal
	now             func() time.Time
}

// NewService builds the borrowing record manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrowings repo is required")
	}
	if params.BooksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory ledger is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}

	perDay := DefaultFinePerDay
	if params.Lending.FinePerDay != "" {
		parsed, err := decimal.NewFromString(params.Lending.FinePerDay)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fine per day")
		}
		perDay = parsed
	}

	maxExtensions := params.Lending.MaxExtensions
	if maxExtensions <= 0 {
		maxExtensions = 2
	}
	loanPeriod := params.Lending.LoanPeriod()
	if loanPeriod <= 0 {
		loanPeriod = 14 * 24 * time.Hour
	}
	extensionPeriod := params.Lending.ExtensionPeriod()
	if extensionPeriod <= 0 {
		extensionPeriod = 7 * 24 * time.Hour
	}

	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		repo:            params.Repo,
		booksRepo:       params.BooksRepo,
		ledger:          params.Ledger,
		tx:              params.Tx,
		loanPeriod:      loanPeriod,
		extensionPeriod: extensionPeriod,
		maxExtensions:   maxExtensions,
		finePerDay:      perDay,
		now:             now,
	}, nil
}

// Create borrows one copy: insert the active loan, then decrement
// available_copies with a conditional UPDATE. When the decrement matches no
// row the copy was lost to a concurrent borrower, so the just-created loan
// is deleted and BOOK_UNAVAILABLE returned. A failed compensating delete
// leaves a loan without a copy; the reconciliation sweep repairs those, and
// the error surfaces INVENTORY_CONSTRAINT with the row flagged.
func (s *service) Create(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (BorrowingDTO, error) {
	if ident.UserID == uuid.Nil {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if bookID == uuid.Nil {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}

	if _, err := s.booksRepo.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	now := s.now()
	borrowing := &models.Borrowing{
		BookID:        bookID,
		UserID:        ident.UserID,
		BorrowedAt:    now,
		DueDate:       now.Add(s.loanPeriod),
		Status:        enums.BorrowingStatusActive,
		MaxExtensions: s.maxExtensions,
		FineAmount:    decimal.Zero,
	}
	if _, err := s.repo.Create(ctx, borrowing); err != nil {
		if db.IsUniqueViolation(err, "borrowings_active_user_book_key") {
			return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "book already borrowed by this member")
		}
		return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create borrowing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledger.Adjust(ctx, tx, bookID, -1)
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInventory) {
			if delErr := s.repo.Delete(ctx, borrowing.ID); delErr != nil {
				return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeInventory, delErr, "borrowing held without copy").
					WithDetails(map[string]any{"borrowing_id": borrowing.ID, "book_id": bookID})
			}
			return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeBookUnavailable, "no copies available")
		}
		return BorrowingDTO{}, err
	}

	return toDTO(borrowing, now), nil
}

// Return closes an active loan and gives the copy back. The fine is priced
// against the due date read here, and the transition is keyed on that same
// due date, so an extension landing in between invalidates the fine and the
// return re-reads instead of charging against the stale date. The transition
// and the inventory increment commit together.
func (s *service) Return(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error) {
	borrowing, err := s.findForActor(ctx, ident, borrowingID)
	if err != nil {
		return BorrowingDTO{}, err
	}

	for attempt := 0; attempt < returnRetries; attempt++ {
		now := s.now()
		fine := Fine(borrowing.DueDate, now, s.finePerDay)

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.MarkReturned(ctx, borrowingID, now, fine, borrowing.DueDate)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark returned")
			}
			if rows == 0 {
				return errStaleReturn
			}
			return s.ledger.Adjust(ctx, tx, borrowing.BookID, 1)
		})
		if err == nil {
			return s.reload(ctx, borrowingID, now)
		}
		if !errors.Is(err, errStaleReturn) {
			return BorrowingDTO{}, err
		}

		current, findErr := s.find(ctx, borrowingID)
		if findErr != nil {
			return BorrowingDTO{}, findErr
		}
		if current.Status != enums.BorrowingStatusActive {
			return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeAlreadyReturned, "borrowing already returned")
		}
		// An extension moved the due date; reprice against the new one.
		borrowing = current
	}
	return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "borrowing changed concurrently, retry")
}

// Validate records staff sign-off on an active loan. Validating twice is a
// no-op that returns the current state; a returned loan reports
// ALREADY_RETURNED.
func (s *service) Validate(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityValidateBorrowings); err != nil {
		return BorrowingDTO{}, err
	}
	borrowing, err := s.find(ctx, borrowingID)
	if err != nil {
		return BorrowingDTO{}, err
	}

	now := s.now()
	if borrowing.AdminValidated {
		return toDTO(borrowing, now), nil
	}
	if borrowing.Status != enums.BorrowingStatusActive {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeAlreadyReturned, "borrowing already returned")
	}

	rows, err := s.repo.MarkValidated(ctx, borrowingID, ident.UserID, now)
	if err != nil {
		return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark validated")
	}
	if rows == 0 {
		// Lost a race since the read: either another admin validated or the
		// member returned. Reload to tell the two apart.
		current, err := s.find(ctx, borrowingID)
		if err != nil {
			return BorrowingDTO{}, err
		}
		if current.AdminValidated {
			return toDTO(current, now), nil
		}
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeAlreadyReturned, "borrowing already returned")
	}
	return s.reload(ctx, borrowingID, now)
}

// Extend pushes the due date out by one extension period. Guard order is
// fixed: a returned loan reports ALREADY_RETURNED, an unvalidated one
// NOT_VALIDATED, an exhausted one EXTENSION_LIMIT_REACHED. The update is
// keyed on the extension count read here, so concurrent extends cannot
// both land.
func (s *service) Extend(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error) {
	borrowing, err := s.findForActor(ctx, ident, borrowingID)
	if err != nil {
		return BorrowingDTO{}, err
	}

	if borrowing.Status != enums.BorrowingStatusActive {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeAlreadyReturned, "borrowing already returned")
	}
	if !borrowing.AdminValidated {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeNotValidated, "borrowing awaits staff validation")
	}
	if borrowing.ExtensionCount >= borrowing.MaxExtensions {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeExtensionLimit, "extension limit reached").
			WithDetails(map[string]any{"extension_count": borrowing.ExtensionCount, "max_extensions": borrowing.MaxExtensions})
	}

	newDue := borrowing.DueDate.Add(s.extensionPeriod)
	rows, err := s.repo.ApplyExtension(ctx, borrowingID, newDue, borrowing.ExtensionCount)
	if err != nil {
		return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply extension")
	}
	if rows == 0 {
		return BorrowingDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "borrowing changed concurrently, retry")
	}
	return s.reload(ctx, borrowingID, s.now())
}

// MarkFinePaid flags the fine settled; staff only, idempotent.
func (s *service) MarkFinePaid(ctx context.Context, ident auth.Identity, borrowingID uuid.UUID) (BorrowingDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityValidateBorrowings); err != nil {
		return BorrowingDTO{}, err
	}
	if _, err := s.find(ctx, borrowingID); err != nil {
		return BorrowingDTO{}, err
	}
	if _, err := s.repo.MarkFinePaid(ctx, borrowingID); err != nil {
		return BorrowingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark fine paid")
	}
	return s.reload(ctx, borrowingID, s.now())
}

func (s *service) ListForUser(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.ListForUser(ctx, ident.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list borrowings")
	}
	return list, nil
}

func (s *service) ListActive(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityViewAllBorrowings); err != nil {
		return nil, err
	}
	list, err := s.repo.ListActive(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active borrowings")
	}
	return list, nil
}

func (s *service) ListOverdue(ctx context.Context, ident auth.Identity, params pagination.Params) (*BorrowingListDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityViewAllBorrowings); err != nil {
		return nil, err
	}
	list, err := s.repo.ListOverdue(ctx, s.now(), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue borrowings")
	}
	return list, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Borrowing, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrowing id is required")
	}
	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "borrowing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load borrowing")
	}
	return borrowing, nil
}

// findForActor loads the loan and checks the caller is the borrower or an
// admin.
func (s *service) findForActor(ctx context.Context, ident auth.Identity, id uuid.UUID) (*models.Borrowing, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	borrowing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if borrowing.UserID != ident.UserID && !ident.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "borrowing belongs to another member")
	}
	return borrowing, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID, asOf time.Time) (BorrowingDTO, error) {
	borrowing, err := s.find(ctx, id)
	if err != nil {
		return BorrowingDTO{}, err
	}
	return toDTO(borrowing, asOf), nil
}
