package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo      Repository
	BooksRepo books.Repository
}

// Service exposes business rules for a member's liked books.
type Service interface {
	Add(ctx context.Context, ident auth.Identity, bookID uuid.UUID) error
	Remove(ctx context.Context, ident auth.Identity, bookID uuid.UUID) error
	List(ctx context.Context, ident auth.Identity, params pagination.Params) (*FavoriteListDTO, error)
	IsFavorite(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (bool, error)
}

type service struct {
	repo      Repository
	booksRepo books.Repository
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites repo is required")
	}
	if params.BooksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	return &service{repo: params.Repo, booksRepo: params.BooksRepo}, nil
}

// Add ensures the book exists and records the like. Liking twice is a
// no-op.
func (s *service) Add(ctx context.Context, ident auth.Identity, bookID uuid.UUID) error {
	if err := requireActor(ident, bookID); err != nil {
		return err
	}
	if _, err := s.booksRepo.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	if err := s.repo.Add(ctx, ident.UserID, bookID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

// Remove drops the like regardless of prior state.
func (s *service) Remove(ctx context.Context, ident auth.Identity, bookID uuid.UUID) error {
	if err := requireActor(ident, bookID); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, ident.UserID, bookID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

func (s *service) List(ctx context.Context, ident auth.Identity, params pagination.Params) (*FavoriteListDTO, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.List(ctx, ident.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	return list, nil
}

func (s *service) IsFavorite(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (bool, error) {
	if err := requireActor(ident, bookID); err != nil {
		return false, err
	}
	liked, err := s.repo.IsFavorite(ctx, ident.UserID, bookID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
	}
	return liked, nil
}

func requireActor(ident auth.Identity, bookID uuid.UUID) error {
	if ident.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if bookID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	return nil
}
