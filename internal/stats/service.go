package stats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
)

// ServiceParams groups dependencies for the stats service.
type ServiceParams struct {
	Repo           Repository
	BooksRepo      books.Repository
	BorrowingsRepo borrowings.Repository
	UsersRepo      users.Repository
	Now            func() time.Time
}

// Service assembles the dashboard counters.
type Service interface {
	Dashboard(ctx context.Context, ident auth.Identity) (*DashboardDTO, error)
}

type service struct {
	repo           Repository
	booksRepo      books.Repository
	borrowingsRepo borrowings.Repository
	usersRepo      users.Repository
	now            func() time.Time
}

// NewService builds a stats service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stats repo is required")
	}
	if params.BooksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	if params.BorrowingsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrowings repo is required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:           params.Repo,
		booksRepo:      params.BooksRepo,
		borrowingsRepo: params.BorrowingsRepo,
		usersRepo:      params.UsersRepo,
		now:            now,
	}, nil
}

// Dashboard returns catalog-wide counters plus the caller's own numbers.
// Member totals and overdue counts are staff-only and stay zero otherwise.
func (s *service) Dashboard(ctx context.Context, ident auth.Identity) (*DashboardDTO, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	dto := &DashboardDTO{}

	totalBooks, err := s.booksRepo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count books")
	}
	dto.TotalBooks = totalBooks

	ownActive, err := s.borrowingsRepo.CountActiveForUser(ctx, ident.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count own loans")
	}
	dto.OwnActiveLoans = ownActive
	dto.ActiveBorrowings = ownActive

	ownPublished, err := s.booksRepo.CountOwnedBy(ctx, ident.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count published books")
	}
	dto.OwnPublished = ownPublished

	top, err := s.repo.TopBorrowed(ctx, topBorrowedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank borrowed books")
	}
	dto.TopBorrowed = top

	if ident.IsAdmin() {
		members, err := s.usersRepo.CountProfiles(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count members")
		}
		dto.TotalMembers = members

		active, err := s.borrowingsRepo.CountActive(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active borrowings")
		}
		dto.ActiveBorrowings = active

		overdue, err := s.borrowingsRepo.CountOverdue(ctx, s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overdue borrowings")
		}
		dto.OverdueCount = overdue
	}

	return dto, nil
}
