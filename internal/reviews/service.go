package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// ServiceParams groups dependencies for the reviews service.
type ServiceParams struct {
	Repo      Repository
	BooksRepo books.Repository
}

// Service exposes business rules for book reviews.
type Service interface {
	Submit(ctx context.Context, ident auth.Identity, bookID uuid.UUID, input SubmitReviewInput) (ReviewDTO, error)
	Delete(ctx context.Context, ident auth.Identity, reviewID uuid.UUID) error
	ListForBook(ctx context.Context, bookID uuid.UUID, params pagination.Params) (*ReviewListDTO, error)
	Summary(ctx context.Context, bookID uuid.UUID) (*SummaryDTO, error)
}

type service struct {
	repo      Repository
	booksRepo books.Repository
}

// NewService builds a reviews service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviews repo is required")
	}
	if params.BooksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	return &service{repo: params.Repo, booksRepo: params.BooksRepo}, nil
}

// Submit publishes the member's rating of a book. A member holds at most
// one review per book, so resubmitting replaces the earlier one.
func (s *service) Submit(ctx context.Context, ident auth.Identity, bookID uuid.UUID, input SubmitReviewInput) (ReviewDTO, error) {
	if ident.UserID == uuid.Nil {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if bookID == uuid.Nil {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	comment := input.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	if _, err := s.booksRepo.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReviewDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	saved, err := s.repo.Upsert(ctx, &models.BookReview{
		BookID:  bookID,
		UserID:  ident.UserID,
		Rating:  input.Rating,
		Comment: comment,
	})
	if err != nil {
		return ReviewDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save review")
	}
	return toDTO(saved), nil
}

// Delete removes a review. The author may always remove their own; staff
// moderate everything else.
func (s *service) Delete(ctx context.Context, ident auth.Identity, reviewID uuid.UUID) error {
	if ident.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if reviewID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}

	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}

	if review.UserID != ident.UserID {
		if err := users.Authorize(ident, enums.CapabilityModerateReviews); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

func (s *service) ListForBook(ctx context.Context, bookID uuid.UUID, params pagination.Params) (*ReviewListDTO, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	list, err := s.repo.ListForBook(ctx, bookID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return list, nil
}

func (s *service) Summary(ctx context.Context, bookID uuid.UUID) (*SummaryDTO, error) {
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	summary, err := s.repo.Summary(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}
	return summary, nil
}

func toDTO(review *models.BookReview) ReviewDTO {
	return ReviewDTO{
		ID:        review.ID,
		BookID:    review.BookID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}
